package archive

import (
	"context"
	"testing"
	"time"
)

func TestObjectName(t *testing.T) {
	at := time.Date(2026, 10, 16, 23, 30, 0, 5, time.FixedZone("EEST", 3*3600))
	got := ObjectName("wayforpay", "SVIY-123", at)
	want := "wayforpay/2026-10-16/SVIY-123-" + "1792182600000000005" + ".json"
	if got != want {
		t.Fatalf("got=%s want=%s", got, want)
	}
}

func TestNopArchive(t *testing.T) {
	if err := (Nop{}).Archive(context.Background(), "x", []byte("{}")); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}
