package gputest

import (
	"errors"
	"testing"
)

func TestEncoder_FinishFreesEncoder(t *testing.T) {
	d := NewDevice()
	enc, err := d.CreateCommandEncoder("frame")
	if err != nil {
		t.Fatalf("CreateCommandEncoder() error = %v", err)
	}
	if n := d.LiveEncoders(); n != 1 {
		t.Fatalf("LiveEncoders() = %d, want 1", n)
	}

	if _, err := enc.Finish(); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	enc.Release()
	if n := d.LiveEncoders(); n != 0 {
		t.Errorf("LiveEncoders() = %d, want 0", n)
	}
	if n := d.Count("ReleaseEncoder"); n != 0 {
		t.Errorf("Release after Finish recorded %d releases, want 0", n)
	}
	if _, err := enc.Finish(); !errors.Is(err, ErrEncoderConsumed) {
		t.Errorf("second Finish() error = %v, want %v", err, ErrEncoderConsumed)
	}
}

func TestEncoder_ReleaseOnce(t *testing.T) {
	d := NewDevice()
	enc, _ := d.CreateCommandEncoder("abandoned")
	enc.Release()
	enc.Release()

	if n := d.LiveEncoders(); n != 0 {
		t.Errorf("LiveEncoders() = %d, want 0", n)
	}
	if n := d.Count("ReleaseEncoder"); n != 1 {
		t.Errorf("ReleaseEncoder count = %d, want 1", n)
	}
	if _, err := enc.Finish(); !errors.Is(err, ErrEncoderConsumed) {
		t.Errorf("Finish() after Release error = %v, want %v", err, ErrEncoderConsumed)
	}
}

func TestEncoder_FailedFinishStaysLive(t *testing.T) {
	d := NewDevice()
	d.FailFinish = true
	enc, _ := d.CreateCommandEncoder("broken")

	if _, err := enc.Finish(); !errors.Is(err, ErrInjected) {
		t.Fatalf("Finish() error = %v, want %v", err, ErrInjected)
	}
	if n := d.LiveEncoders(); n != 1 {
		t.Errorf("LiveEncoders() = %d after failed Finish, want 1", n)
	}
	enc.Release()
	if n := d.LiveEncoders(); n != 0 {
		t.Errorf("LiveEncoders() = %d after Release, want 0", n)
	}
}
