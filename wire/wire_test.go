package wire

import (
	"bufio"
	"bytes"
	"testing"
)

func TestVarintRoundTrip(t *testing.T) {
	vals := []uint64{0, 1, 127, 128, 300, 1 << 20, 1<<63 - 1, 1 << 63, ^uint64(0)}
	for _, v := range vals {
		buf := &bytes.Buffer{}
		if err := WriteVarint(buf, v); err != nil {
			t.Fatalf("write %d: %v", v, err)
		}
		got, err := ReadVarint(bufio.NewReader(buf))
		if err != nil {
			t.Fatalf("read %d: %v", v, err)
		}
		if got != v {
			t.Fatalf("roundtrip %d: got %d", v, got)
		}
	}
}

func TestVarintTruncated(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0x80, 0x80})
	if _, err := ReadVarint(bufio.NewReader(buf)); err == nil {
		t.Fatalf("expected truncated-stream error")
	}
}

func TestVarintOversize(t *testing.T) {
	buf := &bytes.Buffer{}
	for i := 0; i < 9; i++ {
		buf.WriteByte(0xff)
	}
	buf.WriteByte(0x02) // 10th byte > 1 bit set beyond bit 63
	if _, err := ReadVarint(bufio.NewReader(buf)); err != ErrVarintTooLong {
		t.Fatalf("expected ErrVarintTooLong, got %v", err)
	}
}

func TestStringRoundTrip(t *testing.T) {
	cases := []string{"", "hello", string(make([]byte, 1000))}
	for _, s := range cases {
		buf := &bytes.Buffer{}
		if err := WriteString(buf, s); err != nil {
			t.Fatalf("write: %v", err)
		}
		got, err := ReadString(bufio.NewReader(buf))
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if got != s {
			t.Fatalf("roundtrip mismatch: got %q want %q", got, s)
		}
	}
}

func TestEmptyStringSingleZeroByte(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteString(buf, ""); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 1 || buf.Bytes()[0] != 0 {
		t.Fatalf("expected single zero byte, got %v", buf.Bytes())
	}
}

func TestFixedIntRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteI64(buf, -123456789); err != nil {
		t.Fatal(err)
	}
	if err := WriteU32(buf, 0xdeadbeef); err != nil {
		t.Fatal(err)
	}
	if err := WriteF64(buf, 3.14159); err != nil {
		t.Fatal(err)
	}
	i, err := ReadI64(buf)
	if err != nil || i != -123456789 {
		t.Fatalf("i64: got %d err %v", i, err)
	}
	u, err := ReadU32(buf)
	if err != nil || u != 0xdeadbeef {
		t.Fatalf("u32: got %x err %v", u, err)
	}
	f, err := ReadF64(buf)
	if err != nil || f != 3.14159 {
		t.Fatalf("f64: got %v err %v", f, err)
	}
}

func TestWidthRoundTrip(t *testing.T) {
	in := make([]byte, 16)
	for i := range in {
		in[i] = byte(i)
	}
	buf := &bytes.Buffer{}
	if err := WriteWidth(buf, in); err != nil {
		t.Fatal(err)
	}
	out, err := ReadWidth(buf, 16)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(in, out) {
		t.Fatalf("width roundtrip mismatch: got %v want %v", out, in)
	}
}
