package jit

import "testing"

func TestExecutableRegionWriteAndCapacity(t *testing.T) {
	region, err := Reserve(16)
	if err != nil {
		t.Fatal(err)
	}
	defer region.Drop()

	if err := region.Write([]byte{0xC3}); err != nil {
		t.Fatal(err)
	}
	if err := region.Write(make([]byte, 16)); err == nil {
		t.Fatal("writing past the reserved capacity should fail")
	}
}

func TestExecutableRegionWriteAfterFinalizeFails(t *testing.T) {
	region, err := Reserve(16)
	if err != nil {
		t.Fatal(err)
	}
	defer region.Drop()

	if err := region.Write([]byte{0xC3}); err != nil {
		t.Fatal(err)
	}
	if err := region.Finalize(); err != nil {
		t.Fatal(err)
	}
	if err := region.Write([]byte{0x90}); err == nil {
		t.Fatal("writing after Finalize should fail")
	}
}

func TestExecutableRegionDropIsIdempotent(t *testing.T) {
	region, err := Reserve(16)
	if err != nil {
		t.Fatal(err)
	}
	if err := region.Drop(); err != nil {
		t.Fatal(err)
	}
	if err := region.Drop(); err != nil {
		t.Fatalf("second Drop should be a no-op, got %v", err)
	}
}
