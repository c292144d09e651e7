package conv

import "testing"

func TestHex32(t *testing.T) {
	for _, c := range []struct {
		n    uint32
		want string
	}{
		{0, "0x00000000"},
		{0x7, "0x00000007"},
		{0xff0c1d00, "0xff0c1d00"},
		{0xffffffff, "0xffffffff"},
	} {
		if got := Hex32(c.n); got != c.want {
			t.Fatalf("Hex32(%#x) = %q, want %q", c.n, got, c.want)
		}
	}
}

func TestHexAddr(t *testing.T) {
	if got := HexAddr(0xff0c0d00); got != "0xff0c0d00" {
		t.Fatalf("HexAddr 32-bit = %q", got)
	}
	if got := HexAddr(0x100); got != "0x00000100" {
		t.Fatalf("HexAddr small = %q", got)
	}
}
