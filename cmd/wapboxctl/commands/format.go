package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

// errUnsupportedFormat is returned when the requested output format is not supported.
var errUnsupportedFormat = errors.New("unsupported output format")

// sessionRow mirrors internal/admin's sessionView JSON shape.
type sessionRow struct {
	SessionID     uint32 `json:"session_id"`
	State         string `json:"state"`
	RemoteAddr    string `json:"remote_addr"`
	ClientSDUSize uint32 `json:"client_sdu_size"`
	ServerSDUSize uint32 `json:"server_sdu_size"`
	MethodCount   int    `json:"method_count"`
}

// methodRow mirrors internal/admin's methodView JSON shape.
type methodRow struct {
	TransactionID uint32 `json:"transaction_id"`
	State         string `json:"state"`
}

func formatSessions(sessions []sessionRow, format string) (string, error) {
	switch format {
	case formatJSON:
		return formatJSONValue(sessions)
	case formatTable:
		return formatSessionsTable(sessions), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func formatMethods(methods []methodRow, format string) (string, error) {
	switch format {
	case formatJSON:
		return formatJSONValue(methods)
	case formatTable:
		return formatMethodsTable(methods), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func formatJSONValue(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal json: %w", err)
	}
	return string(b) + "\n", nil
}

func formatSessionsTable(sessions []sessionRow) string {
	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION-ID\tSTATE\tREMOTE-ADDR\tCLIENT-SDU\tSERVER-SDU\tMETHODS")

	for _, s := range sessions {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\n",
			s.SessionID, s.State, s.RemoteAddr, s.ClientSDUSize, s.ServerSDUSize, s.MethodCount)
	}

	w.Flush()
	return buf.String()
}

func formatMethodsTable(methods []methodRow) string {
	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TRANSACTION-ID\tSTATE")

	for _, m := range methods {
		fmt.Fprintf(w, "%d\t%s\n", m.TransactionID, m.State)
	}

	w.Flush()
	return buf.String()
}
