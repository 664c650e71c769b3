package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/vesaa/invmon/internal/models"
)

// HostMemory reads memory counters through gopsutil. Free is the memory
// available to new processes, which includes reclaimable cache.
type HostMemory struct{}

func (HostMemory) Memory() (uint64, uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, 0, err
	}
	return vm.Total, vm.Available, nil
}

// HostProductID returns the stable hardware identifier of this host.
func HostProductID() (string, error) {
	info, err := host.Info()
	if err != nil {
		return "", fmt.Errorf("reading host info: %w", err)
	}
	if info.HostID == "" {
		return "", fmt.Errorf("host id unavailable on %s", info.OS)
	}
	return info.HostID, nil
}

// BoardReader returns the current motherboard descriptor.
type BoardReader interface {
	Board() (models.Motherboard, error)
}

// DMIBoard reads the board descriptor from Linux DMI sysfs
// (/sys/class/dmi/id). Unreadable attributes, e.g. root-only serials or
// hosts without DMI, are left empty.
type DMIBoard struct {
	Root   string
	Memory MemoryReader
}

func (b DMIBoard) Board() (models.Motherboard, error) {
	board := models.Motherboard{
		Manufacturer: b.attr("board_vendor"),
		Model:        b.attr("board_name"),
		Version:      b.attr("board_version"),
		Serial:       b.attr("board_serial"),
		AssetTag:     b.attr("board_asset_tag"),
	}
	if b.Memory != nil {
		total, _, err := b.Memory.Memory()
		if err != nil {
			return board, fmt.Errorf("reading memory capacity: %w", err)
		}
		board.MemMax = total
	}
	return board, nil
}

func (b DMIBoard) attr(name string) string {
	if b.Root == "" {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(b.Root, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
