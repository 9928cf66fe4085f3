package hal

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/watt-tools/watt/internal/domain"
)

// ReadCPUJiffies parses the per-CPU rows of /proc/stat, keyed by logical
// CPU id. The aggregate "cpu" row is skipped; utilization is computed
// per core and averaged by the sampler.
func (h *HAL) ReadCPUJiffies() (map[int]domain.JiffyCounts, error) {
	path := h.path("proc/stat")
	f, err := os.Open(path)
	if err != nil {
		return nil, mapReadErr(path, err)
	}
	defer f.Close()

	out := make(map[int]domain.JiffyCounts)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "cpu") {
			break // per-CPU rows come first
		}
		fields := strings.Fields(line)
		if len(fields) < 9 || fields[0] == "cpu" {
			continue
		}
		id, err := strconv.Atoi(strings.TrimPrefix(fields[0], "cpu"))
		if err != nil {
			continue
		}
		var vals [8]uint64
		for i := 0; i < 8; i++ {
			vals[i], _ = strconv.ParseUint(fields[i+1], 10, 64)
		}
		out[id] = domain.JiffyCounts{
			User: vals[0], Nice: vals[1], System: vals[2], Idle: vals[3],
			IOWait: vals[4], IRQ: vals[5], SoftIRQ: vals[6], Steal: vals[7],
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: scan %s: %v", domain.ErrIO, path, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no per-cpu rows in %s", domain.ErrIO, path)
	}
	return out, nil
}
