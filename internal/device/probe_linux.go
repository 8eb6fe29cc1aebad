//go:build linux

package device

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// probe classifies root on Linux by resolving its mount source from
// /proc/self/mountinfo and, for block devices, reading the rotational flag
// from sysfs (0 → SSD, 1 → HDD).
func probe(root string) (Profile, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(root, &st); err != nil {
		return profileFor(Unknown, ""), err
	}

	switch st.Type {
	case unix.NFS_SUPER_MAGIC, 0xFE534D42: // NFS, CIFS/SMB2
		return profileFor(Network, fsTypeName(st.Type)), nil
	case unix.TMPFS_MAGIC:
		return profileFor(RAMDisk, "tmpfs"), nil
	}

	device, fsType := mountSourceFor(root)
	if device == "" {
		return profileFor(Unknown, fsType), nil
	}

	if rotational, ok := readRotational(device); ok {
		if rotational {
			return profileFor(HDD, fsType), nil
		}
		return profileFor(SSD, fsType), nil
	}

	return profileFor(Unknown, fsType), nil
}

func fsTypeName(magic int64) string {
	switch magic {
	case unix.NFS_SUPER_MAGIC:
		return "nfs"
	case 0xFE534D42:
		return "smb"
	default:
		return "unknown"
	}
}

// mountSourceFor finds the longest matching mountinfo entry covering root
// and returns its backing device name and filesystem type.
func mountSourceFor(root string) (device, fsType string) {
	f, err := os.Open("/proc/self/mountinfo")
	if err != nil {
		return "", ""
	}
	defer f.Close()

	bestLen := -1
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		sepIdx := -1
		for i, field := range fields {
			if field == "-" {
				sepIdx = i
				break
			}
		}
		if sepIdx < 0 || sepIdx+2 >= len(fields) {
			continue
		}

		mountPoint := fields[4]
		if !strings.HasPrefix(root, mountPoint) {
			continue
		}
		if len(mountPoint) <= bestLen {
			continue
		}

		bestLen = len(mountPoint)
		fsType = fields[sepIdx+1]
		device = fields[sepIdx+2]
	}

	return device, fsType
}

// readRotational reads /sys/block/<dev>/queue/rotational for a device node
// such as /dev/sda1, stripping the partition suffix to reach the parent
// block device's queue directory.
func readRotational(device string) (rotational bool, ok bool) {
	base := strings.TrimPrefix(device, "/dev/")
	base = strings.TrimRightFunc(base, func(r rune) bool { return r >= '0' && r <= '9' })

	data, err := os.ReadFile("/sys/block/" + base + "/queue/rotational")
	if err != nil {
		return false, false
	}

	val, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false, false
	}

	return val == 1, true
}
