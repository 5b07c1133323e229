package reusestore

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc64"
	"hash/fnv"
	"io"
	"os"

	"github.com/fastbot/reuse-core/reusemodel"
)

// File format, grounded on core/vectorgraphdb/vamana/ivf/persistence.go's
// tagged binary stream (magic bytes + version + CRC64 checksum). Older
// reuse models were keyed by activity name rather than widget hash
// (schemaActivityKeyed); load() accepts both, save() always emits the
// current schema.
const (
	magicBytes     = "FBRM"
	schemaWidgetKeyed   uint8 = 1
	schemaActivityKeyed uint8 = 0
)

var crcTable = crc64.MakeTable(crc64.ISO)

// Save writes snap to w in the tagged binary format: 4-byte magic, a
// 1-byte schema version, the payload, and an 8-byte CRC64 checksum of
// the payload.
func Save(w io.Writer, snap *Snapshot) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(magicBytes); err != nil {
		return fmt.Errorf("reusestore: write magic: %w", err)
	}
	if err := bw.WriteByte(schemaWidgetKeyed); err != nil {
		return fmt.Errorf("reusestore: write schema version: %w", err)
	}

	crc := crc64.New(crcTable)
	payload := io.MultiWriter(bw, crc)

	if err := writeUint32(payload, uint32(len(snap.Entries))); err != nil {
		return err
	}
	for hash, entry := range snap.Entries {
		attrs := snap.Attrs[hash]
		if err := writeActionRecord(payload, hash, attrs, entry); err != nil {
			return err
		}
	}

	if err := binary.Write(bw, binary.BigEndian, crc.Sum64()); err != nil {
		return fmt.Errorf("reusestore: write checksum: %w", err)
	}

	return bw.Flush()
}

// SaveFile writes snap to path, replacing any existing file.
func SaveFile(path string, snap *Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("reusestore: create %s: %w", path, err)
	}
	defer f.Close()

	if err := Save(f, snap); err != nil {
		return err
	}
	return f.Sync()
}

// Load reads a Snapshot from r, verifying the CRC64 checksum and
// accepting either the current widget-keyed schema or the legacy
// activity-keyed schema.
func Load(r io.Reader) (*Snapshot, error) {
	br := bufio.NewReader(r)

	magic := make([]byte, len(magicBytes))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("reusestore: read magic: %w", err)
	}
	if string(magic) != magicBytes {
		return nil, fmt.Errorf("reusestore: bad magic bytes %q", magic)
	}

	schema, err := br.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("reusestore: read schema version: %w", err)
	}

	// Buffer the rest so the checksum can be verified against exactly
	// the bytes the payload reader consumes.
	rest, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("reusestore: read body: %w", err)
	}
	if len(rest) < 8 {
		return nil, fmt.Errorf("reusestore: truncated file")
	}

	payload := rest[:len(rest)-8]
	wantChecksum := binary.BigEndian.Uint64(rest[len(rest)-8:])

	crc := crc64.New(crcTable)
	crc.Write(payload)
	if crc.Sum64() != wantChecksum {
		return nil, fmt.Errorf("reusestore: checksum mismatch")
	}

	switch schema {
	case schemaWidgetKeyed:
		return loadWidgetKeyed(payload)
	case schemaActivityKeyed:
		return loadActivityKeyed(payload)
	default:
		return nil, fmt.Errorf("reusestore: unknown schema version %d", schema)
	}
}

// LoadFile reads a Snapshot from path.
func LoadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reusestore: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

func writeActionRecord(w io.Writer, hash uint64, attrs reusemodel.ActionSimilarityAttributes, entry *reusemodel.ReuseEntry) error {
	if err := binary.Write(w, binary.BigEndian, hash); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, attrs.ActionType); err != nil {
		return err
	}
	if err := writeString(w, attrs.ActivityName); err != nil {
		return err
	}
	if err := writeWidgetAttrs(w, attrs.TargetWidget); err != nil {
		return err
	}

	if err := writeUint32(w, uint32(len(entry.Widgets))); err != nil {
		return err
	}
	for wh, wc := range entry.Widgets {
		if err := binary.Write(w, binary.BigEndian, wh); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, wc.Count); err != nil {
			return err
		}
		if err := writeWidgetAttrs(w, wc.Similarity); err != nil {
			return err
		}
	}
	return nil
}

func writeWidgetAttrs(w io.Writer, a reusemodel.WidgetAttributes) error {
	for _, s := range []string{a.Text, a.Activity, a.ResourceID, a.IconBase64} {
		if err := writeString(w, s); err != nil {
			return err
		}
	}
	return nil
}

func writeString(w io.Writer, s string) error {
	if err := writeUint32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func writeUint32(w io.Writer, v uint32) error {
	return binary.Write(w, binary.BigEndian, v)
}

func loadWidgetKeyed(payload []byte) (*Snapshot, error) {
	r := newByteReader(payload)
	snap := &Snapshot{
		Entries: make(map[uint64]*reusemodel.ReuseEntry),
		Attrs:   make(map[uint64]reusemodel.ActionSimilarityAttributes),
	}

	count, err := r.uint32()
	if err != nil {
		return nil, err
	}

	for i := uint32(0); i < count; i++ {
		hash, err := r.uint64()
		if err != nil {
			return nil, err
		}
		actionType, err := r.int32()
		if err != nil {
			return nil, err
		}
		activity, err := r.string()
		if err != nil {
			return nil, err
		}
		target, err := r.widgetAttrs()
		if err != nil {
			return nil, err
		}

		entry := reusemodel.NewReuseEntry()
		widgetCount, err := r.uint32()
		if err != nil {
			return nil, err
		}
		for j := uint32(0); j < widgetCount; j++ {
			wh, err := r.uint64()
			if err != nil {
				return nil, err
			}
			cnt, err := r.int32()
			if err != nil {
				return nil, err
			}
			sim, err := r.widgetAttrs()
			if err != nil {
				return nil, err
			}
			entry.Widgets[wh] = &reusemodel.WidgetCount{WidgetHash: wh, Count: cnt, Similarity: sim}
		}

		snap.Entries[hash] = entry
		snap.Attrs[hash] = reusemodel.ActionSimilarityAttributes{
			ActionType:   actionType,
			ActivityName: activity,
			TargetWidget: target,
		}
	}

	return snap, nil
}

// loadActivityKeyed reads the legacy format, where records were keyed
// by activity name string rather than a widget hash under each entry.
// On load this collapses into the same widget-keyed Snapshot shape by
// hashing the activity name string with FNV-1a into a synthetic
// widget hash, since the legacy format never carried one.
func loadActivityKeyed(payload []byte) (*Snapshot, error) {
	r := newByteReader(payload)
	snap := &Snapshot{
		Entries: make(map[uint64]*reusemodel.ReuseEntry),
		Attrs:   make(map[uint64]reusemodel.ActionSimilarityAttributes),
	}

	count, err := r.uint32()
	if err != nil {
		return nil, err
	}

	for i := uint32(0); i < count; i++ {
		hash, err := r.uint64()
		if err != nil {
			return nil, err
		}
		actionType, err := r.int32()
		if err != nil {
			return nil, err
		}
		activity, err := r.string()
		if err != nil {
			return nil, err
		}

		widgetCount, err := r.uint32()
		if err != nil {
			return nil, err
		}
		entry := reusemodel.NewReuseEntry()
		for j := uint32(0); j < widgetCount; j++ {
			actName, err := r.string()
			if err != nil {
				return nil, err
			}
			cnt, err := r.int32()
			if err != nil {
				return nil, err
			}
			wh := hashActivityName(actName)
			entry.Widgets[wh] = &reusemodel.WidgetCount{WidgetHash: wh, Count: cnt}
		}

		snap.Entries[hash] = entry
		snap.Attrs[hash] = reusemodel.ActionSimilarityAttributes{
			ActionType:   actionType,
			ActivityName: activity,
		}
	}

	return snap, nil
}

type byteReader struct {
	buf []byte
	pos int
}

func newByteReader(buf []byte) *byteReader { return &byteReader{buf: buf} }

func (r *byteReader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return fmt.Errorf("reusestore: unexpected end of data")
	}
	return nil
}

func (r *byteReader) uint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *byteReader) uint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *byteReader) int32() (int32, error) {
	v, err := r.uint32()
	return int32(v), err
}

func (r *byteReader) string() (string, error) {
	n, err := r.uint32()
	if err != nil {
		return "", err
	}
	if err := r.need(int(n)); err != nil {
		return "", err
	}
	s := string(r.buf[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

func hashActivityName(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

func (r *byteReader) widgetAttrs() (reusemodel.WidgetAttributes, error) {
	var a reusemodel.WidgetAttributes
	var err error
	if a.Text, err = r.string(); err != nil {
		return a, err
	}
	if a.Activity, err = r.string(); err != nil {
		return a, err
	}
	if a.ResourceID, err = r.string(); err != nil {
		return a, err
	}
	if a.IconBase64, err = r.string(); err != nil {
		return a, err
	}
	return a, nil
}
