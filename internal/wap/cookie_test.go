package wap_test

import (
	"testing"
	"time"

	"github.com/pruiz/wapbox/internal/wap"
)

func TestCookieJarStoreReplacesSameNameDomainPath(t *testing.T) {
	t.Parallel()

	jar := wap.NewCookieJar()
	birth := time.Unix(1000, 0)
	jar.Store(wap.Cookie{Name: "sid", Value: "old", Domain: "example.com", Path: "/", MaxAge: -1, Birth: birth})
	jar.Store(wap.Cookie{Name: "sid", Value: "new", Domain: "example.com", Path: "/", MaxAge: -1, Birth: birth})

	got := jar.Matching("example.com", "/")
	if len(got) != 1 {
		t.Fatalf("Matching() returned %d cookies, want 1", len(got))
	}
	if got[0].Value != "new" {
		t.Errorf("Value = %q, want %q", got[0].Value, "new")
	}
}

func TestCookieJarStoreKeepsDistinctPaths(t *testing.T) {
	t.Parallel()

	jar := wap.NewCookieJar()
	jar.Store(wap.Cookie{Name: "a", Value: "1", Domain: "example.com", Path: "/foo", MaxAge: -1})
	jar.Store(wap.Cookie{Name: "a", Value: "2", Domain: "example.com", Path: "/bar", MaxAge: -1})

	if len(jar.Matching("example.com", "/foo")) != 1 {
		t.Error("expected exactly one cookie matching /foo")
	}
	if len(jar.Matching("example.com", "/bar")) != 1 {
		t.Error("expected exactly one cookie matching /bar")
	}
}

func TestCookieExpired(t *testing.T) {
	t.Parallel()

	birth := time.Unix(1000, 0)
	session := wap.Cookie{MaxAge: -1, Birth: birth}
	if session.Expired(birth.Add(100 * time.Hour)) {
		t.Error("session cookie (MaxAge -1) should never expire")
	}

	aged := wap.Cookie{MaxAge: 10, Birth: birth}
	if aged.Expired(birth.Add(5 * time.Second)) {
		t.Error("cookie should not be expired before MaxAge elapses")
	}
	if !aged.Expired(birth.Add(11 * time.Second)) {
		t.Error("cookie should be expired after MaxAge elapses")
	}
}

func TestCookieJarPurgeDropsExpired(t *testing.T) {
	t.Parallel()

	birth := time.Unix(1000, 0)
	jar := wap.NewCookieJar()
	jar.Store(wap.Cookie{Name: "live", Domain: "e.com", Path: "/", MaxAge: -1, Birth: birth})
	jar.Store(wap.Cookie{Name: "dead", Domain: "e.com", Path: "/", MaxAge: 1, Birth: birth})

	jar.Purge(birth.Add(10 * time.Second))

	got := jar.Matching("e.com", "/")
	if len(got) != 1 || got[0].Name != "live" {
		t.Errorf("after Purge, Matching() = %v, want only 'live'", got)
	}
}

func TestCookieJarMatchingFiltersDomainAndPathPrefix(t *testing.T) {
	t.Parallel()

	jar := wap.NewCookieJar()
	jar.Store(wap.Cookie{Name: "a", Domain: "example.com", Path: "/app", MaxAge: -1})
	jar.Store(wap.Cookie{Name: "b", Domain: "other.com", Path: "/app", MaxAge: -1})

	got := jar.Matching("example.com", "/app/page")
	if len(got) != 1 || got[0].Name != "a" {
		t.Errorf("Matching() = %v, want only 'a'", got)
	}
}

func TestCookieJarHeaderValueSeparator(t *testing.T) {
	t.Parallel()

	jar := wap.NewCookieJar()
	jar.Store(wap.Cookie{Name: "a", Value: "1", Domain: "e.com", Path: "/", MaxAge: -1})
	jar.Store(wap.Cookie{Name: "b", Value: "2", Domain: "e.com", Path: "/", MaxAge: -1})

	got := jar.HeaderValue("e.com", "/")
	want := "a=1; b=2"
	if got != want {
		t.Errorf("HeaderValue() = %q, want %q", got, want)
	}
}

func TestCookieJarHeaderValueQuotedValueOmitsSeparator(t *testing.T) {
	t.Parallel()

	jar := wap.NewCookieJar()
	jar.Store(wap.Cookie{Name: "a", Value: "1", Domain: "e.com", Path: "/", MaxAge: -1})
	jar.Store(wap.Cookie{Name: "b", Value: "\"quoted\"", Domain: "e.com", Path: "/", MaxAge: -1})

	got := jar.HeaderValue("e.com", "/")
	want := "a=1b=\"quoted\""
	if got != want {
		t.Errorf("HeaderValue() = %q, want %q (preserved quoting quirk)", got, want)
	}
}
