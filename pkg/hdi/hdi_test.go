package hdi

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

const (
	testBytesPerSector    = 512
	testSectorsPerCluster = 1
	testReservedSectors   = 1
	testNumFATs           = 1
	testRootEntries       = 16
	testSectorsPerFAT     = 1
	testDataClusters      = 6
)

// buildImage assembles a minimal FAT12 volume: a root directory holding one
// "EVE" subdirectory, which holds one file "A.CC" with the given initial
// contents occupying exactly one cluster.
func buildImage(t *testing.T, initialContents []byte) []byte {
	t.Helper()
	if len(initialContents) > testBytesPerSector {
		t.Fatalf("test fixture assumes a single-cluster initial file")
	}

	rootLBA := testReservedSectors + testNumFATs*testSectorsPerFAT
	rootSectors := (testRootEntries*dirEntrySize + testBytesPerSector - 1) / testBytesPerSector
	dataLBA := rootLBA + rootSectors
	totalSectors := dataLBA + testDataClusters

	data := make([]byte, totalSectors*testBytesPerSector)
	binary.LittleEndian.PutUint16(data[11:13], testBytesPerSector)
	data[13] = testSectorsPerCluster
	binary.LittleEndian.PutUint16(data[14:16], testReservedSectors)
	data[16] = testNumFATs
	binary.LittleEndian.PutUint16(data[17:19], testRootEntries)
	binary.LittleEndian.PutUint16(data[19:21], uint16(totalSectors))
	binary.LittleEndian.PutUint16(data[22:24], testSectorsPerFAT)

	fat := fatTable{kind: fat12, data: data[testReservedSectors*testBytesPerSector : (testReservedSectors+testNumFATs*testSectorsPerFAT)*testBytesPerSector]}
	fat.set(2, fat12.eocMarker()) // EVE directory, one cluster
	fat.set(3, fat12.eocMarker()) // A.CC, one cluster initially

	rootOff := rootLBA * testBytesPerSector
	writeDirEntry(data, rootOff, "EVE", "", true, 2, 0)

	eveClusterOff := (dataLBA + (2 - 2)) * testBytesPerSector
	writeDirEntry(data, eveClusterOff, "A", "CC", false, 3, len(initialContents))

	fileClusterOff := (dataLBA + (3 - 2)) * testBytesPerSector
	copy(data[fileClusterOff:], initialContents)

	return data
}

func writeDirEntry(data []byte, off int, name, ext string, isDir bool, firstCluster, size int) {
	entry := data[off : off+dirEntrySize]
	copy(entry[0:8], padded(name, 8))
	copy(entry[8:11], padded(ext, 3))
	if isDir {
		entry[11] = attrDirectory
	} else {
		entry[11] = 0x20
	}
	binary.LittleEndian.PutUint16(entry[26:28], uint16(firstCluster))
	binary.LittleEndian.PutUint32(entry[28:32], uint32(size))
}

func padded(s string, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = ' '
	}
	copy(out, s)
	return out
}

func openTestImage(t *testing.T, data []byte) *Image {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.hdi")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	img, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return img
}

func TestOpen_ParsesFAT12Geometry(t *testing.T) {
	img := openTestImage(t, buildImage(t, []byte("HELLOWORLD")))
	defer img.Close()
	if img.kind != fat12 {
		t.Errorf("kind = %v, want fat12", img.kind)
	}
}

func TestReplaceFile_SameSizeInPlace(t *testing.T) {
	img := openTestImage(t, buildImage(t, []byte("HELLOWORLD")))
	defer img.Close()

	if err := img.ReplaceFile("/EVE/A.CC", []byte("GOODBYE!!!")); err != nil {
		t.Fatalf("ReplaceFile() error = %v", err)
	}

	entry, err := img.find("/EVE/A.CC")
	if err != nil {
		t.Fatalf("find() error = %v", err)
	}
	if entry.size != len("GOODBYE!!!") {
		t.Errorf("size = %d, want %d", entry.size, len("GOODBYE!!!"))
	}
	off := img.clusterOffset(entry.firstCluster)
	got := img.data[off : off+len("GOODBYE!!!")]
	if !bytes.Equal(got, []byte("GOODBYE!!!")) {
		t.Errorf("cluster contents = %q, want %q", got, "GOODBYE!!!")
	}
}

func TestReplaceFile_GrowsAcrossClusters(t *testing.T) {
	img := openTestImage(t, buildImage(t, []byte("SHORT")))
	defer img.Close()

	big := bytes.Repeat([]byte("X"), testBytesPerSector+100)
	if err := img.ReplaceFile("/EVE/A.CC", big); err != nil {
		t.Fatalf("ReplaceFile() error = %v", err)
	}

	entry, err := img.find("/EVE/A.CC")
	if err != nil {
		t.Fatalf("find() error = %v", err)
	}
	if entry.size != len(big) {
		t.Errorf("size = %d, want %d", entry.size, len(big))
	}
	chain := img.fat.chain(entry.firstCluster)
	if len(chain) != 2 {
		t.Fatalf("chain length = %d, want 2", len(chain))
	}

	var reassembled []byte
	for _, c := range chain {
		off := img.clusterOffset(c)
		reassembled = append(reassembled, img.data[off:off+img.clusterSize()]...)
	}
	if !bytes.Equal(reassembled[:len(big)], big) {
		t.Errorf("reassembled contents mismatch")
	}
}

func TestReplaceFile_ShrinksAndFreesTailClusters(t *testing.T) {
	img := openTestImage(t, buildImage(t, []byte("SHORT")))
	defer img.Close()

	big := bytes.Repeat([]byte("X"), testBytesPerSector+50)
	if err := img.ReplaceFile("/EVE/A.CC", big); err != nil {
		t.Fatalf("ReplaceFile() error = %v", err)
	}
	entry, _ := img.find("/EVE/A.CC")
	grownChain := img.fat.chain(entry.firstCluster)
	if len(grownChain) != 2 {
		t.Fatalf("expected growth to 2 clusters, got %d", len(grownChain))
	}
	freedCluster := grownChain[1]

	if err := img.ReplaceFile("/EVE/A.CC", []byte("TINY")); err != nil {
		t.Fatalf("ReplaceFile() error = %v", err)
	}
	if v := img.fat.get(freedCluster); v != 0 {
		t.Errorf("freed cluster %d still marked allocated: %#x", freedCluster, v)
	}
}

func TestReplaceFile_NotFound(t *testing.T) {
	img := openTestImage(t, buildImage(t, []byte("HELLOWORLD")))
	defer img.Close()
	if err := img.ReplaceFile("/EVE/MISSING.CC", []byte("x")); err != ErrNotFound {
		t.Errorf("ReplaceFile() error = %v, want ErrNotFound", err)
	}
}

func TestReplaceFile_NoSpace(t *testing.T) {
	img := openTestImage(t, buildImage(t, []byte("SHORT")))
	defer img.Close()

	// Only 4 free clusters exist in the fixture (4,5,6,7); demand far more.
	huge := bytes.Repeat([]byte("X"), testBytesPerSector*20)
	if err := img.ReplaceFile("/EVE/A.CC", huge); err != ErrNoSpace {
		t.Errorf("ReplaceFile() error = %v, want ErrNoSpace", err)
	}
}

func TestOpen_TooSmallIsCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.hdi")
	if err := os.WriteFile(path, []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err != ErrImageCorrupt {
		t.Errorf("Open() error = %v, want ErrImageCorrupt", err)
	}
}
