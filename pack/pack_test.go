package pack

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"

	"github.com/bytedance/sonic"

	"github.com/hazyhaar/lanterne/store"
)

func TestRoundTrip(t *testing.T) {
	slides := []*store.Slide{
		{Signature: "s1", Label: "one.png", MIME: "image/png", AddedAt: 100, Payload: []byte{0x89, 'P', 'N', 'G', 0x00}},
		{Signature: "s2", Label: "two.jpg", MIME: "image/jpeg", AddedAt: 200, Payload: []byte{0xff, 0xd8, 0xff}},
		{Signature: "s3", Label: "deck.pdf - page 1", MIME: "image/png", AddedAt: 300, Payload: bytes.Repeat([]byte{7}, 512)},
	}

	data, err := Encode(slides, 750, nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	pkg, err := Decode(data, nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if pkg.Total != 3 || len(pkg.Units) != 3 {
		t.Fatalf("total=%d units=%d, want 3/3", pkg.Total, len(pkg.Units))
	}
	if !pkg.HasDelay || pkg.DelayMS != 750 {
		t.Errorf("delay = (%v, %v), want (750, true)", pkg.DelayMS, pkg.HasDelay)
	}
	for i, sl := range slides {
		u := pkg.Units[i]
		if u.Signature != sl.Signature || u.Label != sl.Label || u.MIME != sl.MIME || u.AddedAt != sl.AddedAt {
			t.Errorf("unit %d metadata mismatch: %+v vs %+v", i, u, sl)
		}
		if !bytes.Equal(u.Payload, sl.Payload) {
			t.Errorf("unit %d payload not byte-identical", i)
		}
	}
}

func TestEncodeSkipsEmptyPayload(t *testing.T) {
	slides := []*store.Slide{
		{Signature: "ok", Label: "a", MIME: "image/png", AddedAt: 1, Payload: []byte{1}},
		{Signature: "broken", Label: "b", MIME: "image/png", AddedAt: 2},
	}
	data, err := Encode(slides, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	pkg, err := Decode(data, nil)
	if err != nil {
		t.Fatal(err)
	}
	if pkg.Total != 1 || len(pkg.Units) != 1 || pkg.Units[0].Signature != "ok" {
		t.Fatalf("expected only the readable slide exported, got %+v", pkg)
	}
}

func TestDecodeVersionGate(t *testing.T) {
	data := []byte(`{"version":2,"delay":500,"generatedAt":"2026-01-01T00:00:00Z","slides":[]}`)
	_, err := Decode(data, nil)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestDecodeNotJSON(t *testing.T) {
	for _, input := range []string{"not json at all", "42", `"a string"`, `[1,2,3]`} {
		if _, err := Decode([]byte(input), nil); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("Decode(%q) err = %v, want ErrUnsupportedFormat", input, err)
		}
	}
}

func TestDecodeWrongShape(t *testing.T) {
	// Right version but no slides array.
	data := []byte(`{"version":1,"delay":500}`)
	_, err := Decode(data, nil)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestDecodePartialCorruption(t *testing.T) {
	good := base64.StdEncoding.EncodeToString([]byte("pixels"))
	var slides string
	for i := range 5 {
		slides += fmt.Sprintf(`{"signature":"s%d","label":"l%d","type":"image/png","addedAt":%d,"bytes":"%s"},`, i, i, i+1, good)
	}
	slides += `{"signature":"bad","label":"corrupt","type":"image/png","addedAt":99,"bytes":"!!!not-base64!!!"}`
	data := []byte(`{"version":1,"slides":[` + slides + `]}`)

	pkg, err := Decode(data, nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if pkg.Total != 6 {
		t.Errorf("total = %d, want 6", pkg.Total)
	}
	if len(pkg.Units) != 5 {
		t.Errorf("units = %d, want 5", len(pkg.Units))
	}
	for _, u := range pkg.Units {
		if u.Signature == "bad" {
			t.Error("corrupt slide leaked into units")
		}
	}
}

func TestDecodeAssignsFreshSignature(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("p"))
	data := []byte(`{"version":1,"slides":[{"label":"anon","type":"image/png","addedAt":1,"bytes":"` + payload + `"}]}`)

	pkg, err := Decode(data, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(pkg.Units) != 1 || pkg.Units[0].Signature == "" {
		t.Fatalf("expected fresh signature, got %+v", pkg.Units)
	}
}

func TestDecodeMissingDelay(t *testing.T) {
	data := []byte(`{"version":1,"slides":[]}`)
	pkg, err := Decode(data, nil)
	if err != nil {
		t.Fatal(err)
	}
	if pkg.HasDelay {
		t.Error("HasDelay = true for package without delay")
	}
}

func TestEncodeShape(t *testing.T) {
	data, err := Encode([]*store.Slide{{Signature: "s", Label: "l", MIME: "image/png", AddedAt: 5, Payload: []byte{1}}}, 1200, nil)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := sonic.Unmarshal(data, &doc); err != nil {
		t.Fatalf("exported package is not JSON: %v", err)
	}
	if doc["version"] != float64(1) {
		t.Errorf("version = %v, want 1", doc["version"])
	}
	if doc["delay"] != float64(1200) {
		t.Errorf("delay = %v, want 1200", doc["delay"])
	}
	if _, ok := doc["generatedAt"].(string); !ok {
		t.Error("generatedAt missing")
	}
	if _, ok := doc["slides"].([]any); !ok {
		t.Error("slides missing")
	}
}
