package bloom

import (
	"sync"
	"testing"
)

func TestFilter_AddAndTest(t *testing.T) {
	f := NewFactory().New(32, 0.05)

	key := []byte("doubleclick.net")
	if f.MightContain(key) {
		t.Fatalf("unexpected positive before add")
	}
	f.Add(key)
	if !f.MightContain(key) {
		t.Fatalf("expected maybe after add")
	}
}

func TestFilter_ConcurrentReadsDuringWrites(t *testing.T) {
	f := NewFactory().New(256, 0.01)

	var wg sync.WaitGroup
	keys := [][]byte{[]byte("a.com"), []byte("b.com"), []byte("c.com")}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			f.Add(keys[i%len(keys)])
		}
	}()
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = f.MightContain(keys[i%len(keys)])
			}
		}()
	}
	wg.Wait()

	for _, k := range keys {
		if !f.MightContain(k) {
			t.Errorf("expected %q present after writes", k)
		}
	}
}

func TestSize(t *testing.T) {
	tests := []struct {
		name  string
		n     uint64
		p     float64
		wantM uint64
		wantK uint8
	}{
		{"1000 at 1%", 1000, 0.01, 9586, 7},
		{"zero n clamps to 1", 0, 0.01, 10, 7},
		{"invalid p defaults to 1%", 1000, 1.5, 9586, 7},
		{"negative p defaults to 1%", 1000, -1, 9586, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, k := size(tt.n, tt.p)
			if m != tt.wantM || k != tt.wantK {
				t.Errorf("size(%d, %v) = (%d, %d), want (%d, %d)", tt.n, tt.p, m, k, tt.wantM, tt.wantK)
			}
		})
	}
}
