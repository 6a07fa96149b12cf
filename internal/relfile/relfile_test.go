package relfile

import "testing"

func TestParseSegmentFileNameRoundTrip(t *testing.T) {
	tests := []struct {
		name        string
		wantRelNode uint32
		wantFork    Fork
		wantSegment uint32
	}{
		{"16401", 16401, ForkMain, 0},
		{"16401.2", 16401, ForkMain, 2},
		{"16401_vm", 16401, ForkVisibility, 0},
		{"16401_fsm.3", 16401, ForkFSM, 3},
		{"16401_init", 16401, ForkInit, 0},
	}

	for _, tt := range tests {
		relNode, fork, segment, ok := ParseSegmentFileName(tt.name)
		if !ok {
			t.Fatalf("ParseSegmentFileName(%q): expected ok", tt.name)
		}
		if relNode != tt.wantRelNode || fork != tt.wantFork || segment != tt.wantSegment {
			t.Fatalf("ParseSegmentFileName(%q) = (%d, %v, %d), want (%d, %v, %d)",
				tt.name, relNode, fork, segment, tt.wantRelNode, tt.wantFork, tt.wantSegment)
		}
		if got := SegmentFileName(relNode, fork, segment); got != tt.name {
			t.Fatalf("SegmentFileName roundtrip = %q, want %q", got, tt.name)
		}
	}
}

func TestParseSegmentFileNameRejectsNonNumeric(t *testing.T) {
	for _, name := range []string{"pg_control", "postgresql.conf", "PG_VERSION"} {
		if _, _, _, ok := ParseSegmentFileName(name); ok {
			t.Fatalf("ParseSegmentFileName(%q): expected !ok", name)
		}
	}
}

func TestKeyString(t *testing.T) {
	k := Key{Node: Node{Tablespace: 1663, Database: 16384, RelNode: 16401}, Fork: ForkVisibility, Segment: 2}
	want := "1663/16384/16401_vm.2"
	if got := k.String(); got != want {
		t.Fatalf("Key.String() = %q, want %q", got, want)
	}
}

func TestKeyFromRelPath(t *testing.T) {
	tests := []struct {
		rel  string
		ok   bool
		want Key
	}{
		{"base/16384/16401_vm.2", true, Key{Node: Node{Database: 16384, RelNode: 16401}, Fork: ForkVisibility, Segment: 2}},
		{"global/1262", true, Key{Node: Node{Database: 0, RelNode: 1262}, Fork: ForkMain, Segment: 0}},
		{"base/16384/PG_VERSION", false, Key{}},
		{"postgresql.conf", false, Key{}},
		{
			"pg_tblspc/16400/PG_16_202307071/16384/16401_vm.1", true,
			Key{Node: Node{Tablespace: 16400, Database: 16384, RelNode: 16401}, Fork: ForkVisibility, Segment: 1},
		},
		{"pg_tblspc/16400/PG_16_202307071/16384/PG_VERSION", false, Key{}},
	}
	for _, tt := range tests {
		got, ok := KeyFromRelPath(tt.rel)
		if ok != tt.ok {
			t.Fatalf("KeyFromRelPath(%q) ok = %v, want %v", tt.rel, ok, tt.ok)
		}
		if ok && got != tt.want {
			t.Fatalf("KeyFromRelPath(%q) = %+v, want %+v", tt.rel, got, tt.want)
		}
	}
}
