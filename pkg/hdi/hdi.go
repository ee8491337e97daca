// Package hdi implements just enough of FAT12/16 to satisfy the one
// operation the translation-patching toolchain needs from a disk image:
// replace an existing file, by absolute in-image path, with new contents,
// in place. It does not create files, grow directories, or support FAT32.
package hdi

import (
	"encoding/binary"
	"errors"
	"os"
	"strings"
)

// Sentinel errors surfaced by ReplaceFile, matching the failure kinds the
// image-writer collaborator is required to distinguish.
var (
	ErrNotFound     = errors.New("hdi: path not found in image")
	ErrNoSpace      = errors.New("hdi: insufficient free clusters")
	ErrImageCorrupt = errors.New("hdi: image is not a valid FAT12/16 volume")
)

const dirEntrySize = 32
const attrDirectory = 0x10
const attrVolumeLabel = 0x08
const attrLongName = 0x0F

// bpb holds the BIOS Parameter Block fields this package needs. Field names
// follow the conventional FAT boot sector layout.
type bpb struct {
	bytesPerSector    int
	sectorsPerCluster int
	reservedSectors   int
	numFATs           int
	rootEntries       int
	totalSectors      int
	sectorsPerFAT     int
}

// Image is an open FAT12/16 disk image held entirely in memory. Close
// writes the (possibly modified) buffer back to disk.
type Image struct {
	path    string
	data    []byte
	geom    bpb
	kind    fatType
	fat     fatTable
	dirty   bool
	rootLBA int // first sector of the root directory region
	rootLen int // root directory region length in sectors
	dataLBA int // first sector of the cluster data region
}

// Open reads path into memory and parses its BIOS Parameter Block.
func Open(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < 512 {
		return nil, ErrImageCorrupt
	}

	geom := bpb{
		bytesPerSector:    int(binary.LittleEndian.Uint16(data[11:13])),
		sectorsPerCluster: int(data[13]),
		reservedSectors:   int(binary.LittleEndian.Uint16(data[14:16])),
		numFATs:           int(data[16]),
		rootEntries:       int(binary.LittleEndian.Uint16(data[17:19])),
		totalSectors:      int(binary.LittleEndian.Uint16(data[19:21])),
		sectorsPerFAT:     int(binary.LittleEndian.Uint16(data[22:24])),
	}
	if geom.totalSectors == 0 {
		geom.totalSectors = int(binary.LittleEndian.Uint32(data[32:36]))
	}
	if geom.bytesPerSector == 0 || geom.sectorsPerCluster == 0 || geom.numFATs == 0 || geom.sectorsPerFAT == 0 {
		return nil, ErrImageCorrupt
	}

	rootLBA := geom.reservedSectors + geom.numFATs*geom.sectorsPerFAT
	rootBytes := geom.rootEntries * dirEntrySize
	rootLen := (rootBytes + geom.bytesPerSector - 1) / geom.bytesPerSector
	dataLBA := rootLBA + rootLen

	dataSectors := geom.totalSectors - dataLBA
	if dataSectors < 0 || geom.sectorsPerCluster == 0 {
		return nil, ErrImageCorrupt
	}
	clusterCount := dataSectors / geom.sectorsPerCluster

	kind, err := classify(clusterCount)
	if err != nil {
		return nil, err
	}

	fatStart := geom.reservedSectors * geom.bytesPerSector
	fatBytes := geom.sectorsPerFAT * geom.bytesPerSector
	if fatStart+fatBytes > len(data) {
		return nil, ErrImageCorrupt
	}
	fat := fatTable{kind: kind, data: data[fatStart : fatStart+fatBytes]}

	if rootLBA*geom.bytesPerSector+rootLen*geom.bytesPerSector > len(data) {
		return nil, ErrImageCorrupt
	}

	return &Image{
		path:    path,
		data:    data,
		geom:    geom,
		kind:    kind,
		fat:     fat,
		rootLBA: rootLBA,
		rootLen: rootLen,
		dataLBA: dataLBA,
	}, nil
}

// Close writes the image back to disk if it was modified, then releases
// the in-memory buffer.
func (img *Image) Close() error {
	if img.dirty {
		if err := os.WriteFile(img.path, img.data, 0o644); err != nil {
			return err
		}
		img.dirty = false
	}
	img.data = nil
	return nil
}

func (img *Image) clusterSize() int {
	return img.geom.bytesPerSector * img.geom.sectorsPerCluster
}

func (img *Image) clusterOffset(cluster int) int {
	sector := img.dataLBA + (cluster-2)*img.geom.sectorsPerCluster
	return sector * img.geom.bytesPerSector
}

// dirRegion is a byte-range view of one directory's entries, either the
// fixed root region or a chain of data clusters for a subdirectory.
type dirRegion struct {
	offsets []int // start-of-entry offsets into img.data, in region order
}

func (img *Image) rootRegion() dirRegion {
	base := img.rootLBA * img.geom.bytesPerSector
	n := img.rootEntryCount()
	offsets := make([]int, n)
	for i := range offsets {
		offsets[i] = base + i*dirEntrySize
	}
	return dirRegion{offsets: offsets}
}

func (img *Image) rootEntryCount() int {
	return (img.rootLen * img.geom.bytesPerSector) / dirEntrySize
}

func (img *Image) clusterRegion(startCluster int) dirRegion {
	var offsets []int
	for _, c := range img.fat.chain(startCluster) {
		base := img.clusterOffset(c)
		for off := 0; off < img.clusterSize(); off += dirEntrySize {
			offsets = append(offsets, base+off)
		}
	}
	return dirRegion{offsets: offsets}
}

// dirEntry is a decoded 8.3 directory entry plus the file offset of its
// 32-byte record, so callers can write updated fields back in place.
type dirEntry struct {
	recordOffset int
	name         string // "NAME.EXT", uppercase, no padding
	isDir        bool
	firstCluster int
	size         int
}

func to83Name(raw []byte) string {
	name := strings.TrimRight(string(raw[0:8]), " ")
	ext := strings.TrimRight(string(raw[8:11]), " ")
	if ext == "" {
		return name
	}
	return name + "." + ext
}

func (img *Image) readEntries(region dirRegion) []dirEntry {
	var out []dirEntry
	for _, off := range region.offsets {
		if off+dirEntrySize > len(img.data) {
			continue
		}
		raw := img.data[off : off+dirEntrySize]
		first := raw[0]
		if first == 0x00 {
			break
		}
		if first == 0xE5 {
			continue
		}
		attr := raw[11]
		if attr&attrLongName == attrLongName || attr&attrVolumeLabel != 0 {
			continue
		}
		out = append(out, dirEntry{
			recordOffset: off,
			name:         to83Name(raw),
			isDir:        attr&attrDirectory != 0,
			firstCluster: int(binary.LittleEndian.Uint16(raw[26:28])),
			size:         int(binary.LittleEndian.Uint32(raw[28:32])),
		})
	}
	return out
}

// splitPath breaks an in-image path like "/EVE/SCRIPT1.CC" into ordered
// path components, tolerant of forward slashes with or without a leading
// or trailing slash.
func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// find walks components from the root directory and returns the final
// component's directory entry, or ErrNotFound if any component is missing
// or an intermediate component is not a directory.
func (img *Image) find(path string) (dirEntry, error) {
	components := splitPath(path)
	if len(components) == 0 {
		return dirEntry{}, ErrNotFound
	}

	region := img.rootRegion()
	for i, name := range components {
		entries := img.readEntries(region)
		var match *dirEntry
		for j := range entries {
			if strings.EqualFold(entries[j].name, name) {
				match = &entries[j]
				break
			}
		}
		if match == nil {
			return dirEntry{}, ErrNotFound
		}
		if i == len(components)-1 {
			return *match, nil
		}
		if !match.isDir {
			return dirEntry{}, ErrNotFound
		}
		region = img.clusterRegion(match.firstCluster)
	}
	return dirEntry{}, ErrNotFound
}

// ReplaceFile overwrites the file at the given absolute in-image path with
// contents, reusing its existing cluster chain and extending it with newly
// allocated clusters if contents is larger than the file it replaces.
func (img *Image) ReplaceFile(path string, contents []byte) error {
	entry, err := img.find(path)
	if err != nil {
		return err
	}
	if entry.isDir {
		return ErrNotFound
	}

	clusterSize := img.clusterSize()
	needed := (len(contents) + clusterSize - 1) / clusterSize
	if needed == 0 {
		needed = 1 // FAT files, even empty ones, occupy at least one cluster on this engine's media.
	}

	existing := img.fat.chain(entry.firstCluster)

	var chain []int
	switch {
	case needed <= len(existing):
		chain = existing[:needed]
		img.freeTail(existing[needed:])
	default:
		extra := needed - len(existing)
		totalClusters := (img.geom.totalSectors - img.dataLBA) / img.geom.sectorsPerCluster
		fresh := img.fat.freeClusters(extra, totalClusters)
		if len(fresh) < extra {
			return ErrNoSpace
		}
		chain = append(append([]int{}, existing...), fresh...)
	}

	img.linkChain(chain)
	img.writeClusters(chain, contents)
	img.writeDirEntry(entry.recordOffset, chain[0], len(contents))
	img.dirty = true
	return nil
}

// freeTail marks a suffix of clusters no longer needed by a shrunk file as
// free in the FAT.
func (img *Image) freeTail(clusters []int) {
	for _, c := range clusters {
		img.fat.set(c, 0)
	}
}

// linkChain writes FAT entries so each cluster in chain points to the
// next, with the last cluster terminated by the volume's EOC marker.
func (img *Image) linkChain(chain []int) {
	for i, c := range chain {
		if i == len(chain)-1 {
			img.fat.set(c, img.kind.eocMarker())
		} else {
			img.fat.set(c, uint32(chain[i+1]))
		}
	}
}

// writeClusters copies contents into chain's clusters in order, zero-
// padding any remainder of the final cluster.
func (img *Image) writeClusters(chain []int, contents []byte) {
	clusterSize := img.clusterSize()
	pos := 0
	for _, c := range chain {
		off := img.clusterOffset(c)
		n := copy(img.data[off:off+clusterSize], contents[pos:])
		for i := n; i < clusterSize; i++ {
			img.data[off+i] = 0
		}
		pos += n
	}
}

func (img *Image) writeDirEntry(recordOffset, firstCluster, size int) {
	raw := img.data[recordOffset : recordOffset+dirEntrySize]
	binary.LittleEndian.PutUint16(raw[26:28], uint16(firstCluster))
	binary.LittleEndian.PutUint32(raw[28:32], uint32(size))
}
