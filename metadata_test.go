package tidewatch

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestObjectMetadata_IsChanged(t *testing.T) {
	now := time.Now()
	base := ObjectMetadata{
		Path:       "/data/a.txt",
		Size:       100,
		ModifiedAt: now,
		SeenAt:     now,
	}

	if base.IsChanged(base) {
		t.Error("identical metadata reported as changed")
	}

	resized := base
	resized.Size = 50
	if !base.IsChanged(resized) {
		t.Error("size change not detected")
	}

	touched := base
	touched.ModifiedAt = now.Add(time.Second)
	if !base.IsChanged(touched) {
		t.Error("modification time change not detected")
	}

	reseen := base
	reseen.SeenAt = now.Add(time.Hour)
	if base.IsChanged(reseen) {
		t.Error("SeenAt alone must not count as a change")
	}
}

func TestPutFuture_Promise(t *testing.T) {
	ctx := context.Background()

	future, resolve := Promise()
	go resolve(nil)
	if err := future.Wait(ctx); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	wantErr := errors.New("disk full")
	if err := ResolvedFuture(wantErr).Wait(ctx); !errors.Is(err, wantErr) {
		t.Fatalf("Expected %v, got %v", wantErr, err)
	}
}

func TestPutFuture_WaitHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	future, _ := Promise()
	if err := future.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}

func TestQueuedAction_Constructors(t *testing.T) {
	meta := ObjectMetadata{Path: "a", Size: 1}

	read := ReadAction("a", meta)
	if read.Kind != ActionRead || read.Key != "a" || read.Metadata.Size != 1 {
		t.Errorf("Unexpected read action: %+v", read)
	}

	del := DeleteAction("a")
	if del.Kind != ActionDelete || del.Metadata.Size != 0 {
		t.Errorf("Delete action must carry zero metadata: %+v", del)
	}

	if ActionUpdate.String() != "update" {
		t.Errorf("Expected %q, got %q", "update", ActionUpdate.String())
	}
}
