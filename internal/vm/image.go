package vm

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/javanstorm/qvm/pkg/hypervisor"
)

// ImageInfo is the structured result of a disk image inspection.
type ImageInfo struct {
	Filename        string `json:"filename"`
	Format          string `json:"format"`
	VirtualSize     int64  `json:"virtual-size"`
	ActualSize      int64  `json:"actual-size"`
	BackingFilename string `json:"backing-filename,omitempty"`
}

// Imager abstracts disk image operations so provisioning logic can be
// tested without a qemu-img binary on the host.
type Imager interface {
	// Info inspects an image and returns typed metadata.
	Info(path string) (*ImageInfo, error)

	// Create makes a new qcow2 image of the given virtual size.
	Create(path string, sizeBytes int64) error

	// CreateOverlay makes a copy-on-write qcow2 child of backing.
	CreateOverlay(path, backing string) error
}

// QemuImg implements Imager by invoking qemu-img with JSON output.
type QemuImg struct {
	bin string
}

// NewQemuImg resolves the qemu-img binary. A missing binary is fatal.
func NewQemuImg() (*QemuImg, error) {
	bin, err := hypervisor.FindImgBinary()
	if err != nil {
		return nil, err
	}
	return &QemuImg{bin: bin}, nil
}

// Info runs `qemu-img info --output=json` and decodes the result.
func (q *QemuImg) Info(path string) (*ImageInfo, error) {
	out, err := exec.Command(q.bin, "info", "--output=json", path).Output()
	if err != nil {
		return nil, fmt.Errorf("inspect image %s: %w", path, err)
	}
	return parseImageInfo(out)
}

// Create makes a new qcow2 image of the given virtual size.
func (q *QemuImg) Create(path string, sizeBytes int64) error {
	cmd := exec.Command(q.bin, "create", "-f", "qcow2", path, strconv.FormatInt(sizeBytes, 10))
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("create image %s: %w: %s", path, err, out)
	}
	return nil
}

// CreateOverlay makes a qcow2 child whose writes never touch backing.
func (q *QemuImg) CreateOverlay(path, backing string) error {
	cmd := exec.Command(q.bin, "create", "-f", "qcow2", "-b", backing, "-F", "qcow2", path)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("create overlay %s: %w: %s", path, err, out)
	}
	return nil
}

func parseImageInfo(data []byte) (*ImageInfo, error) {
	var info ImageInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse image info: %w", err)
	}
	return &info, nil
}
