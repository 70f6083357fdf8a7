package cluster_test

import (
	"testing"

	"github.com/inmemosd/osd/cluster"
)

func TestPrimaryIsDeterministic(t *testing.T) {
	m := cluster.NewClusterMap(1, []cluster.OSDInfo{
		{ID: 1, Addr: "a"}, {ID: 2, Addr: "b"}, {ID: 3, Addr: "c"},
	})
	first, err := m.Primary(7, 42)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := m.Primary(7, 42)
		if err != nil {
			t.Fatal(err)
		}
		if again.ID != first.ID {
			t.Fatalf("Primary is not deterministic: %d != %d", again.ID, first.ID)
		}
	}
}

func TestPrimaryOnEmptyMap(t *testing.T) {
	m := cluster.NewClusterMap(1, nil)
	if _, err := m.Primary(1, 1); err == nil {
		t.Fatal("expected error on empty map")
	}
}

func TestActingReturnsDistinctOSDs(t *testing.T) {
	m := cluster.NewClusterMap(1, []cluster.OSDInfo{
		{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4},
	})
	acting, err := m.Acting(1, 5, 3)
	if err != nil {
		t.Fatal(err)
	}
	seen := map[int32]bool{}
	for _, o := range acting {
		if seen[o.ID] {
			t.Fatalf("duplicate osd %d in acting set", o.ID)
		}
		seen[o.ID] = true
	}
}

func TestActingInsufficientOSDs(t *testing.T) {
	m := cluster.NewClusterMap(1, []cluster.OSDInfo{{ID: 1}})
	if _, err := m.Acting(1, 1, 3); err == nil {
		t.Fatal("expected error requesting more osds than available")
	}
}

func TestRegistryOnlyAcceptsNewerEpochs(t *testing.T) {
	reg := cluster.NewRegistry(cluster.NewClusterMap(5, nil))
	if reg.Update(cluster.NewClusterMap(5, nil)) {
		t.Fatal("same epoch should not be accepted")
	}
	if reg.Update(cluster.NewClusterMap(3, nil)) {
		t.Fatal("older epoch should not be accepted")
	}
	if !reg.Update(cluster.NewClusterMap(6, nil)) {
		t.Fatal("newer epoch should be accepted")
	}
	if reg.Current().Epoch != 6 {
		t.Fatalf("current epoch = %d, want 6", reg.Current().Epoch)
	}
}
