package spanstate

import "testing"

func TestWALIndexRecordAndOffset(t *testing.T) {
	idx, err := OpenWALIndex(t.TempDir())
	if err != nil {
		t.Fatalf("OpenWALIndex: %v", err)
	}
	defer idx.Close()

	if _, found, err := idx.Offset(1, 0); err != nil || found {
		t.Fatalf("Offset on empty index = (_, %v, %v), want (_, false, nil)", found, err)
	}

	if err := idx.Record(1, 0, 128); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := idx.Record(1, 1, 256); err != nil {
		t.Fatalf("Record: %v", err)
	}

	off, found, err := idx.Offset(1, 0)
	if err != nil || !found || off != 128 {
		t.Errorf("Offset(1,0) = (%d, %v, %v), want (128, true, nil)", off, found, err)
	}
	off, found, err = idx.Offset(1, 1)
	if err != nil || !found || off != 256 {
		t.Errorf("Offset(1,1) = (%d, %v, %v), want (256, true, nil)", off, found, err)
	}

	if err := idx.Record(1, 0, 512); err != nil {
		t.Fatalf("Record overwrite: %v", err)
	}
	off, _, _ = idx.Offset(1, 0)
	if off != 512 {
		t.Errorf("Offset(1,0) after overwrite = %d, want 512", off)
	}
}

func TestWALIndexNilReceiverIsNoOp(t *testing.T) {
	var idx *WALIndex

	if err := idx.Record(1, 0, 10); err != nil {
		t.Errorf("Record on nil index: %v", err)
	}
	if _, found, err := idx.Offset(1, 0); err != nil || found {
		t.Errorf("Offset on nil index = (_, %v, %v), want (_, false, nil)", found, err)
	}
	if err := idx.Close(); err != nil {
		t.Errorf("Close on nil index: %v", err)
	}
}
