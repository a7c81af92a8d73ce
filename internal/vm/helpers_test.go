package vm

import (
	"fmt"
	"os"
	"testing"

	"github.com/javanstorm/qvm/internal/config"
	"github.com/javanstorm/qvm/internal/prompt"
)

// fakeImager implements Imager on plain files, tracking metadata in
// memory so tests need no qemu-img binary.
type fakeImager struct {
	infos map[string]*ImageInfo
}

func newFakeImager() *fakeImager {
	return &fakeImager{infos: make(map[string]*ImageInfo)}
}

func (f *fakeImager) Info(path string) (*ImageInfo, error) {
	info, ok := f.infos[path]
	if !ok {
		return nil, fmt.Errorf("no image at %s", path)
	}
	return info, nil
}

func (f *fakeImager) Create(path string, sizeBytes int64) error {
	if err := os.WriteFile(path, []byte("qcow2"), 0644); err != nil {
		return err
	}
	// A fresh qcow2 allocates almost nothing.
	f.infos[path] = &ImageInfo{
		Filename:    path,
		Format:      "qcow2",
		VirtualSize: sizeBytes,
		ActualSize:  200 * 1024,
	}
	return nil
}

func (f *fakeImager) CreateOverlay(path, backing string) error {
	if err := os.WriteFile(path, []byte("qcow2-overlay"), 0644); err != nil {
		return err
	}
	base := f.infos[backing]
	var virtual int64
	if base != nil {
		virtual = base.VirtualSize
	}
	f.infos[path] = &ImageInfo{
		Filename:        path,
		Format:          "qcow2",
		VirtualSize:     virtual,
		ActualSize:      200 * 1024,
		BackingFilename: backing,
	}
	return nil
}

// setActualSize adjusts the allocated size reported for a path.
func (f *fakeImager) setActualSize(path string, size int64) {
	if info, ok := f.infos[path]; ok {
		info.ActualSize = size
	}
}

// fakePrompter scripts prompt answers per call.
type fakePrompter struct {
	confirmFn func(question string, def bool) bool
	askFn     func(question, def string) string
	chooseFn  func(question string, options []string) (int, bool)
}

func (p *fakePrompter) Confirm(question string, def bool) bool {
	if p.confirmFn != nil {
		return p.confirmFn(question, def)
	}
	return def
}

func (p *fakePrompter) Ask(question, def string) string {
	if p.askFn != nil {
		return p.askFn(question, def)
	}
	return def
}

func (p *fakePrompter) Choose(question string, options []string) (int, bool) {
	if p.chooseFn != nil {
		return p.chooseFn(question, options)
	}
	if len(options) == 0 {
		return 0, false
	}
	return 0, true
}

var _ prompt.Prompter = (*fakePrompter)(nil)

// testManager builds a controller over a temp root with a fake imager,
// provisioned fake firmware, and auto-confirming prompts.
func testManager(t *testing.T) (*Manager, *fakeImager) {
	t.Helper()

	paths, err := config.GetPaths(t.TempDir())
	if err != nil {
		t.Fatalf("GetPaths: %v", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Name = "demo"
	cfg.RootDir = paths.RootDir
	cfg.AssumeYes = true

	inst, err := paths.EnsureInstance(cfg.Name)
	if err != nil {
		t.Fatalf("EnsureInstance: %v", err)
	}

	img := newFakeImager()
	m := newManager(cfg, paths, inst, img, prompt.NewAuto(), NewDiscardLogger(), "/usr/bin/false")
	m.accelProbe = func() bool { return true }
	m.audioProbe = func() bool { return false }
	m.firmware.SetSearchPaths(fakeHostFirmware(t))
	return m, img
}

// fakeHostFirmware lays out a host firmware directory and returns
// search paths pointing at it.
func fakeHostFirmware(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	code := dir + "/OVMF_CODE_4M.fd"
	vars := dir + "/OVMF_VARS_4M.fd"
	if err := os.WriteFile(code, []byte("firmware-code"), 0644); err != nil {
		t.Fatalf("write fake firmware code: %v", err)
	}
	if err := os.WriteFile(vars, []byte("firmware-vars"), 0644); err != nil {
		t.Fatalf("write fake firmware vars: %v", err)
	}
	return []string{code}
}
