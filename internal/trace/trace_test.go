package trace

import (
	"strings"
	"testing"
)

func TestParseAbsoluteTrace(t *testing.T) {
	in := `# a comment
0 read 0x100
10 write 0x200

20 (32) read 0x300
`
	entries, err := Parse(strings.NewReader(in), "workload.stl", 64, false)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	if entries[0].Cycle != 0 || entries[1].Cycle != 10 || entries[2].Cycle != 20 {
		t.Fatalf("entries = %+v, want absolute cycles 0,10,20", entries)
	}
	if entries[2].BurstBytes != 32 {
		t.Errorf("entries[2].BurstBytes = %d, want override 32", entries[2].BurstBytes)
	}
	if entries[1].Command != Write || entries[1].Address != 0x200 {
		t.Errorf("entries[1] = %+v, want Write @0x200", entries[1])
	}
}

func TestParseRelativeTraceAccumulatesCycles(t *testing.T) {
	in := "5 read 0x10\n5 read 0x20\n10 read 0x30\n"
	entries, err := Parse(strings.NewReader(in), "workload.rstl", 64, false)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	want := []uint64{5, 10, 20}
	for i, e := range entries {
		if e.Cycle != want[i] {
			t.Errorf("entries[%d].Cycle = %d, want %d", i, e.Cycle, want[i])
		}
	}
}

func TestParseWriteWithStoreModeRequiresData(t *testing.T) {
	in := "0 write 0x10\n"
	_, err := Parse(strings.NewReader(in), "workload.stl", 4, true)
	if err == nil {
		t.Fatal("Parse should reject a write line missing hexData under StoreMode=Store")
	}
}

func TestParseWriteWithStoreModeParsesData(t *testing.T) {
	in := "0 write 0x10 0xdeadbeef\n"
	entries, err := Parse(strings.NewReader(in), "workload.stl", 4, true)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	want := []byte{0xde, 0xad, 0xbe, 0xef}
	if len(entries) != 1 || string(entries[0].Data) != string(want) {
		t.Fatalf("entries[0].Data = %x, want %x", entries[0].Data, want)
	}
}

func TestParseRejectsUnsupportedCommand(t *testing.T) {
	in := "0 refresh 0x10\n"
	_, err := Parse(strings.NewReader(in), "workload.stl", 64, false)
	if err == nil {
		t.Fatal("Parse should reject an unsupported command")
	}
}

func TestParseRejectsMalformedCycle(t *testing.T) {
	in := "notanumber read 0x10\n"
	_, err := Parse(strings.NewReader(in), "workload.stl", 64, false)
	if err == nil {
		t.Fatal("Parse should reject a non-numeric cycle field")
	}
}
