package assistant

import (
	"encoding/json"
	"testing"
)

func decodeWire(t *testing.T, raw string) Reply {
	t.Helper()
	var r Response
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return Decode(r)
}

func TestDecodeVariants(t *testing.T) {
	cases := []struct {
		raw  string
		kind string
	}{
		{`{"type":"answer","message":"m"}`, "answer"},
		{`{"type":"action","message":"m"}`, "action"},
		{`{"type":"confirm","message":"m"}`, "confirm"},
		{`{"type":"clarify","message":"m"}`, "clarify"},
		{`{"type":"redirect","message":"m","redirectTo":"wip"}`, "redirect"},
		{`{"type":"horoscope","message":"m"}`, "horoscope"},
		{`{"type":"error","message":"m"}`, "error"},
		{`{"type":"weather","message":"m"}`, "unknown"},
		{`{"message":"m"}`, "unknown"},
	}
	for _, tc := range cases {
		if got := decodeWire(t, tc.raw).Kind(); got != tc.kind {
			t.Fatalf("%s decoded as %q, want %q", tc.raw, got, tc.kind)
		}
	}
}

func TestDecodeRedirectCarriesClient(t *testing.T) {
	reply := decodeWire(t, `{"type":"redirect","message":"Taking you there","redirectTo":"wip","redirectParams":{"client":"SKY"},"jobs":["SKY014"]}`)
	rd, ok := reply.(Redirect)
	if !ok {
		t.Fatalf("expected Redirect, got %T", reply)
	}
	if rd.To != "wip" || rd.Client != "SKY" {
		t.Fatalf("unexpected redirect %+v", rd)
	}
}

func TestDecodeConfirmDropsNextPrompt(t *testing.T) {
	reply := decodeWire(t, `{"type":"confirm","message":"Which one?","jobs":["TOW088"],"nextPrompt":"pick one"}`)
	c, ok := reply.(Confirm)
	if !ok {
		t.Fatalf("expected Confirm, got %T", reply)
	}
	if len(c.Jobs) != 1 || c.Jobs[0].Number != "TOW088" {
		t.Fatalf("unexpected jobs %+v", c.Jobs)
	}
}

func TestDecodeNullNextPrompt(t *testing.T) {
	reply := decodeWire(t, `{"type":"answer","message":"m","nextPrompt":null}`)
	if a := reply.(Answer); a.NextPrompt != nil {
		t.Fatalf("expected nil next prompt, got %q", *a.NextPrompt)
	}
}
