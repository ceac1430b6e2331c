// Package compile defines the gateway's WML/WMLScript compiler
// collaborator (spec.md Section 7(d)): a pluggable transform applied to
// an origin response body before it is framed as a WSP reply.
package compile

// Compiler transforms a fetched response body into its compiled
// (tokenized) form for the given charset. An error, or the absence of
// a Compiler altogether, always falls back to the original content
// (spec.md Section 7(d)): compilation is an optimization, never a
// requirement for delivering a response.
type Compiler func(content []byte, charset string) ([]byte, error)

// PassThrough is the default Compiler: it returns content unmodified.
// wapbox ships without a WML/WMLScript tokenizer; origin content is
// always delivered as received.
func PassThrough(content []byte, charset string) ([]byte, error) {
	return content, nil
}
