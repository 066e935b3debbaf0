package session

import (
	"context"
	"errors"
	"image"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/tracking-recovery/internal/raster"
)

func testRaster(t *testing.T, w, h int) *raster.Image {
	t.Helper()
	m, err := raster.FromImage(image.NewNRGBA(image.Rect(0, 0, w, h)))
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestCropToNatural(t *testing.T) {
	tests := []struct {
		name    string
		crop    Crop
		natural image.Rectangle
		want    image.Rectangle
		wantErr bool
	}{
		{
			name:    "display 200 to natural 800",
			crop:    Crop{Rect: Rect{X: 10, Y: 10, Width: 50, Height: 50}, DisplayWidth: 200, DisplayHeight: 200},
			natural: image.Rect(0, 0, 800, 800),
			want:    image.Rect(40, 40, 240, 240),
		},
		{
			name:    "zero display means natural size",
			crop:    Crop{Rect: Rect{X: 1, Y: 2, Width: 3, Height: 4}},
			natural: image.Rect(0, 0, 10, 10),
			want:    image.Rect(1, 2, 4, 6),
		},
		{
			name:    "clamped to image",
			crop:    Crop{Rect: Rect{X: 90, Y: 90, Width: 50, Height: 50}, DisplayWidth: 100, DisplayHeight: 100},
			natural: image.Rect(0, 0, 100, 100),
			want:    image.Rect(90, 90, 100, 100),
		},
		{
			name:    "non-square ratio",
			crop:    Crop{Rect: Rect{X: 10, Y: 10, Width: 20, Height: 20}, DisplayWidth: 100, DisplayHeight: 50},
			natural: image.Rect(0, 0, 300, 200),
			want:    image.Rect(30, 40, 90, 120),
		},
		{
			name:    "starts left of the image",
			crop:    Crop{Rect: Rect{X: -5, Y: 10, Width: 20, Height: 20}},
			natural: image.Rect(0, 0, 100, 100),
			want:    image.Rect(0, 10, 15, 30),
		},
		{
			name:    "starts above a scaled image",
			crop:    Crop{Rect: Rect{X: 10, Y: -10, Width: 20, Height: 20}, DisplayWidth: 50, DisplayHeight: 50},
			natural: image.Rect(0, 0, 100, 100),
			want:    image.Rect(20, 0, 60, 20),
		},
		{
			name:    "entirely left of the image",
			crop:    Crop{Rect: Rect{X: -30, Y: 10, Width: 20, Height: 20}},
			natural: image.Rect(0, 0, 100, 100),
			wantErr: true,
		},
		{
			name:    "empty selection",
			crop:    Crop{Rect: Rect{X: 10, Y: 10}, DisplayWidth: 100, DisplayHeight: 100},
			natural: image.Rect(0, 0, 100, 100),
			wantErr: true,
		},
		{
			name:    "outside",
			crop:    Crop{Rect: Rect{X: 500, Y: 500, Width: 5, Height: 5}, DisplayWidth: 100, DisplayHeight: 100},
			natural: image.Rect(0, 0, 100, 100),
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.crop.ToNatural(tt.natural)
			if tt.wantErr {
				if !errors.Is(err, ErrBadCrop) {
					t.Fatalf("err = %v, want ErrBadCrop", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ToNatural: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ToNatural = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCropMappingSize(t *testing.T) {
	got, err := Crop{Rect: Rect{X: 10, Y: 10, Width: 50, Height: 50}, DisplayWidth: 200, DisplayHeight: 200}.
		ToNatural(image.Rect(0, 0, 800, 800))
	if err != nil {
		t.Fatal(err)
	}
	if got.Min.X != 40 || got.Min.Y != 40 || got.Dx() != 200 || got.Dy() != 200 {
		t.Fatalf("mapped = x:%d y:%d w:%d h:%d", got.Min.X, got.Min.Y, got.Dx(), got.Dy())
	}
}

func TestSessionClaimOnce(t *testing.T) {
	s := New(testRaster(t, 2, 2))
	if !s.Claim() {
		t.Fatalf("first claim should succeed")
	}
	if s.Claim() {
		t.Fatalf("second claim should fail")
	}
}

func TestMemoryStoreTakeIsOneShot(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(time.Minute)
	s := New(testRaster(t, 2, 2))
	if err := st.Put(ctx, s); err != nil {
		t.Fatal(err)
	}

	got, err := st.Take(ctx, s.ID)
	if err != nil || got != s {
		t.Fatalf("Take = %v, %v", got, err)
	}
	if _, err := st.Take(ctx, s.ID); !errors.Is(err, ErrUsed) {
		t.Fatalf("second Take err = %v, want ErrUsed", err)
	}
	if _, err := st.Take(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Take(missing) err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	st := NewMemoryStore(time.Minute)
	st.now = func() time.Time { return now }

	s := New(testRaster(t, 2, 2))
	_ = st.Put(ctx, s)
	now = now.Add(2 * time.Minute)

	if _, err := st.Take(ctx, s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired Take err = %v, want ErrNotFound", err)
	}
	if st.Len() != 0 {
		t.Fatalf("Len = %d after expiry", st.Len())
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	st := NewRedisStore(client, "test:session:", time.Minute)
	if err := st.Ping(ctx); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	s := New(testRaster(t, 7, 5))
	if err := st.Put(ctx, s); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := st.Take(ctx, s.ID)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if got.Image.Width() != 7 || got.Image.Height() != 5 {
		t.Fatalf("round-tripped raster = %dx%d", got.Image.Width(), got.Image.Height())
	}
	if _, err := st.Take(ctx, s.ID); !errors.Is(err, ErrUsed) {
		t.Fatalf("second Take err = %v, want ErrUsed", err)
	}
}
