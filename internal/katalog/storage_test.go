package katalog_test

import (
	"errors"
	"testing"

	"katalog/internal/katalog"
	"katalog/internal/testutil"
)

func TestDescribeVolume(t *testing.T) {
	tests := []struct {
		name      string
		inspector katalog.StorageInspector
		root      string
		want      katalog.Volume
	}{
		{
			name:      "display name wins",
			inspector: &testutil.FakeInspector{Info: katalog.StorageInfo{DisplayName: "USB", FsUUID: "u-1", FsType: "vfat", TotalBytes: 42}},
			root:      "/media/usb",
			want:      katalog.Volume{Label: "USB", FsUUID: "u-1", FsType: "vfat", TotalSize: 42, PhysicalHint: "/media/usb"},
		},
		{
			name:      "base name fallback",
			inspector: &testutil.FakeInspector{},
			root:      "/data/photos",
			want:      katalog.Volume{Label: "photos", PhysicalHint: "/data/photos"},
		},
		{
			name:      "filesystem root falls back to the path",
			inspector: nil,
			root:      "/",
			want:      katalog.Volume{Label: "/", PhysicalHint: "/"},
		},
		{
			name:      "inspection failure leaves fields empty",
			inspector: &testutil.FakeInspector{Err: errors.New("no statfs")},
			root:      "/mnt/disk",
			want:      katalog.Volume{Label: "disk", PhysicalHint: "/mnt/disk"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := katalog.DescribeVolume(tt.inspector, tt.root)
			if *got != tt.want {
				t.Errorf("DescribeVolume() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}
