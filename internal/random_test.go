package internal

import "testing"

func TestSessionIDRoundTrip(t *testing.T) {
	sid, err := NewSessionID()
	if err != nil {
		t.Fatalf("new session id: %v", err)
	}

	parsed, err := ParseSessionID(sid.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != sid {
		t.Fatalf("round trip mismatch: %v != %v", parsed, sid)
	}
}

func TestParseSessionIDRejectsBadInput(t *testing.T) {
	for _, in := range []string{"", "!!!", "c2hvcnQ", "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"} {
		if _, err := ParseSessionID(in); err == nil {
			t.Fatalf("ParseSessionID(%q) accepted", in)
		}
	}
}
