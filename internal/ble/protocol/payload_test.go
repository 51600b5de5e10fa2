package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeIsIdentity(t *testing.T) {
	got := Encode("Hello from client!")
	want := []byte{'H', 'e', 'l', 'l', 'o', ' ', 'f', 'r', 'o', 'm', ' ', 'c', 'l', 'i', 'e', 'n', 't', '!'}
	if !bytes.Equal(got, want) {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestEncodeEmpty(t *testing.T) {
	if got := Encode(""); len(got) != 0 {
		t.Errorf("Encode(\"\") = %q, want empty", got)
	}
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"WELCOME",
		"NOT_WELCOME",
		"  padded  ",
		"line1\nline2",
		"naïve café",
		"\U0001F600 emoji",
		"nul\x00inside",
	}
	for _, in := range inputs {
		out, err := Decode(Encode(in))
		if err != nil {
			t.Errorf("Decode(Encode(%q)) error = %v", in, err)
			continue
		}
		if out != in {
			t.Errorf("Decode(Encode(%q)) = %q", in, out)
		}
	}
}

func TestDecodeInvalidUTF8(t *testing.T) {
	_, err := Decode([]byte{0x57, 0xff, 0xfe})
	if !errors.Is(err, ErrInvalidText) {
		t.Fatalf("Decode(invalid) error = %v, want ErrInvalidText", err)
	}
}

func TestDecodeTruncatedRune(t *testing.T) {
	// First two bytes of a four-byte emoji.
	_, err := Decode([]byte{0xf0, 0x9f})
	if !errors.Is(err, ErrInvalidText) {
		t.Fatalf("Decode(truncated) error = %v, want ErrInvalidText", err)
	}
}
