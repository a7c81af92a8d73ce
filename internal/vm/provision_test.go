package vm

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/javanstorm/qvm/internal/config"
	"github.com/javanstorm/qvm/internal/prompt"
)

func testProvisioner(t *testing.T) (*Provisioner, *fakeImager, *config.Paths, *config.InstancePaths) {
	t.Helper()
	paths, err := config.GetPaths(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	inst, err := paths.EnsureInstance("demo")
	if err != nil {
		t.Fatal(err)
	}

	img := newFakeImager()
	p := NewProvisioner(paths, inst, img, prompt.NewAuto(), NewDiscardLogger(), 40)
	return p, img, paths, inst
}

func TestEnsureBaseDiskCreates(t *testing.T) {
	p, img, paths, _ := testProvisioner(t)

	created, err := p.EnsureBaseDisk()
	if err != nil {
		t.Fatalf("EnsureBaseDisk: %v", err)
	}
	if !created {
		t.Error("first-run creation not reported")
	}

	info, err := img.Info(paths.BaseDisk)
	if err != nil {
		t.Fatalf("base disk not registered: %v", err)
	}
	if info.VirtualSize != 40<<30 {
		t.Errorf("VirtualSize = %d, want 40G", info.VirtualSize)
	}

	// Re-running never destroys a valid base disk.
	created, err = p.EnsureBaseDisk()
	if err != nil {
		t.Fatalf("second EnsureBaseDisk: %v", err)
	}
	if created {
		t.Error("existing base disk reported as created")
	}
}

func TestEnsureBaseDiskDeclined(t *testing.T) {
	paths, err := config.GetPaths(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	inst, err := paths.EnsureInstance("demo")
	if err != nil {
		t.Fatal(err)
	}

	decline := &fakePrompter{confirmFn: func(string, bool) bool { return false }}
	p := NewProvisioner(paths, inst, newFakeImager(), decline, NewDiscardLogger(), 40)

	if _, err := p.EnsureBaseDisk(); err == nil {
		t.Error("declined base disk creation must fail")
	}
	if fileExists(paths.BaseDisk) {
		t.Error("base disk created despite declined confirmation")
	}
}

func TestBaseDiskEmptyHeuristic(t *testing.T) {
	p, img, paths, _ := testProvisioner(t)

	if _, err := p.EnsureBaseDisk(); err != nil {
		t.Fatal(err)
	}

	empty, err := p.BaseDiskEmpty()
	if err != nil {
		t.Fatal(err)
	}
	if !empty {
		t.Error("fresh base disk must look empty")
	}

	// An installed OS allocates real space.
	img.setActualSize(paths.BaseDisk, 8<<30)
	empty, err = p.BaseDiskEmpty()
	if err != nil {
		t.Fatal(err)
	}
	if empty {
		t.Error("installed base disk must not look empty")
	}
}

func TestEnsureOverlayCreatesWithBacking(t *testing.T) {
	p, img, paths, inst := testProvisioner(t)

	if _, err := p.EnsureBaseDisk(); err != nil {
		t.Fatal(err)
	}
	if err := p.EnsureOverlay(); err != nil {
		t.Fatalf("EnsureOverlay: %v", err)
	}

	info, err := img.Info(inst.OverlayDisk)
	if err != nil {
		t.Fatalf("overlay not registered: %v", err)
	}
	if info.BackingFilename != paths.BaseDisk {
		t.Errorf("backing = %q, want base disk path %q", info.BackingFilename, paths.BaseDisk)
	}

	// Idempotent on a valid overlay.
	if err := p.EnsureOverlay(); err != nil {
		t.Fatalf("second EnsureOverlay: %v", err)
	}
}

func TestOverlayBrokenBackingRebuilt(t *testing.T) {
	p, img, paths, inst := testProvisioner(t)

	if _, err := p.EnsureBaseDisk(); err != nil {
		t.Fatal(err)
	}
	if err := p.EnsureOverlay(); err != nil {
		t.Fatal(err)
	}

	// Delete the base disk file: the backing reference is now broken.
	if err := os.Remove(paths.BaseDisk); err != nil {
		t.Fatal(err)
	}
	valid, err := p.overlayBackingValid()
	if err != nil {
		t.Fatal(err)
	}
	if valid {
		t.Fatal("deleted backing file must flag the overlay invalid")
	}

	// Recreate the base; the auto prompter confirms the rebuild.
	if _, err := p.EnsureBaseDisk(); err != nil {
		t.Fatal(err)
	}
	// Simulate the stale overlay still pointing at the old inode by
	// keeping its recorded backing intact; EnsureOverlay revalidates
	// and finds it valid again, so break it explicitly instead.
	img.infos[inst.OverlayDisk].BackingFilename = paths.BaseDisk + ".gone"
	if err := p.EnsureOverlay(); err != nil {
		t.Fatalf("EnsureOverlay rebuild: %v", err)
	}

	info, _ := img.Info(inst.OverlayDisk)
	if info.BackingFilename != paths.BaseDisk {
		t.Errorf("rebuilt overlay backing = %q, want %q", info.BackingFilename, paths.BaseDisk)
	}
}

func TestOverlayBrokenBackingDeclined(t *testing.T) {
	paths, err := config.GetPaths(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	inst, err := paths.EnsureInstance("demo")
	if err != nil {
		t.Fatal(err)
	}

	img := newFakeImager()
	auto := NewProvisioner(paths, inst, img, prompt.NewAuto(), NewDiscardLogger(), 40)
	if _, err := auto.EnsureBaseDisk(); err != nil {
		t.Fatal(err)
	}
	if err := auto.EnsureOverlay(); err != nil {
		t.Fatal(err)
	}
	img.infos[inst.OverlayDisk].BackingFilename = paths.BaseDisk + ".gone"

	decline := &fakePrompter{confirmFn: func(q string, def bool) bool {
		return !strings.Contains(q, "Discard the overlay")
	}}
	p := NewProvisioner(paths, inst, img, decline, NewDiscardLogger(), 40)

	if err := p.EnsureOverlay(); err == nil {
		t.Error("broken overlay must never be silently reused or rebuilt without confirmation")
	}
	if !fileExists(inst.OverlayDisk) {
		t.Error("overlay deleted despite declined confirmation")
	}
}

func TestEnsureVarStore(t *testing.T) {
	p, _, _, inst := testProvisioner(t)

	template := filepath.Join(t.TempDir(), "template.fd")
	if err := os.WriteFile(template, []byte("vars-template"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := p.EnsureVarStore(template); err != nil {
		t.Fatalf("EnsureVarStore: %v", err)
	}
	content, err := os.ReadFile(inst.VarStore)
	if err != nil {
		t.Fatalf("variable store not created: %v", err)
	}
	if string(content) != "vars-template" {
		t.Errorf("store content = %q", content)
	}

	// Guest writes persist: a second ensure must not overwrite.
	if err := os.WriteFile(inst.VarStore, []byte("guest-modified"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := p.EnsureVarStore(template); err != nil {
		t.Fatal(err)
	}
	content, _ = os.ReadFile(inst.VarStore)
	if string(content) != "guest-modified" {
		t.Error("existing variable store was overwritten")
	}
}

func TestScratchVarStore(t *testing.T) {
	template := filepath.Join(t.TempDir(), "template.fd")
	if err := os.WriteFile(template, []byte("vars"), 0644); err != nil {
		t.Fatal(err)
	}

	first, cleanup1, err := ScratchVarStore(template)
	if err != nil {
		t.Fatalf("ScratchVarStore: %v", err)
	}
	second, cleanup2, err := ScratchVarStore(template)
	if err != nil {
		t.Fatalf("ScratchVarStore: %v", err)
	}

	if first == second {
		t.Error("scratch copies must be unique per call")
	}
	if !fileExists(first) || !fileExists(second) {
		t.Error("scratch copies not created")
	}

	cleanup1()
	cleanup2()
	if fileExists(first) || fileExists(second) {
		t.Error("cleanup did not remove scratch copies")
	}
}
