package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/errors"
)

type Reader struct {
	file     *os.File
	filePath string
	header   SegmentHeader
	dict     []DictEntry
	postCRC  uint32
}

// OpenReader validates the header, footer and dictionary checksum of the
// segment at path. Postings are read lazily.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening segment file: %w", err)
	}
	r, err := newReader(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func newReader(f *os.File, path string) (*Reader, error) {
	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		return nil, fmt.Errorf("reading segment header: %v: %w", err, apperrors.ErrCorruptSegment)
	}
	header := decodeHeader(headerBytes)
	if header.Magic != MagicBytes {
		return nil, fmt.Errorf("bad magic bytes %x: %w", header.Magic, apperrors.ErrCorruptSegment)
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported segment version %d: %w", header.Version, apperrors.ErrCorruptSegment)
	}
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat segment file: %w", err)
	}
	size := info.Size()
	if !within(header.PostOffset, header.PostSize, size) {
		return nil, fmt.Errorf("postings region [%d,+%d) outside %d-byte file: %w",
			header.PostOffset, header.PostSize, size, apperrors.ErrCorruptSegment)
	}
	if header.DictSize < 0 || !within(header.DictOffset, header.DictSize+int64(FooterSize), size) {
		return nil, fmt.Errorf("dictionary region [%d,+%d) outside %d-byte file: %w",
			header.DictOffset, header.DictSize, size, apperrors.ErrCorruptSegment)
	}
	footer := make([]byte, FooterSize)
	if _, err := f.ReadAt(footer, header.DictOffset+header.DictSize); err != nil {
		return nil, fmt.Errorf("reading segment footer: %v: %w", err, apperrors.ErrCorruptSegment)
	}
	dictBytes := make([]byte, header.DictSize)
	if _, err := f.ReadAt(dictBytes, header.DictOffset); err != nil {
		return nil, fmt.Errorf("reading dictionary: %v: %w", err, apperrors.ErrCorruptSegment)
	}
	if sum := crc32.ChecksumIEEE(dictBytes); sum != binary.LittleEndian.Uint32(footer[0:4]) {
		return nil, fmt.Errorf("dictionary checksum mismatch: %w", apperrors.ErrCorruptSegment)
	}
	var dict []DictEntry
	if err := json.Unmarshal(dictBytes, &dict); err != nil {
		return nil, fmt.Errorf("parsing dictionary: %v: %w", err, apperrors.ErrCorruptSegment)
	}
	return &Reader{
		file:     f,
		filePath: path,
		header:   header,
		dict:     dict,
		postCRC:  binary.LittleEndian.Uint32(footer[24:28]),
	}, nil
}

// Search returns the postings for a single term without loading the rest of
// the segment.
func (r *Reader) Search(term string) (index.PostingList, error) {
	idx := sort.Search(len(r.dict), func(i int) bool {
		return r.dict[i].Term >= term
	})
	if idx >= len(r.dict) || r.dict[idx].Term != term {
		return nil, nil
	}
	return r.readPostings(r.dict[idx])
}

// within reports whether [off, off+n) lies inside a file of the given size
// past the header.
func within(off, n, size int64) bool {
	return off >= int64(HeaderSize) && n >= 0 && off <= size && n <= size-off
}

func (r *Reader) readPostings(entry DictEntry) (index.PostingList, error) {
	if entry.PostOffset < 0 || entry.PostLen < 0 || int64(entry.PostLen) > r.header.PostSize-entry.PostOffset {
		return nil, fmt.Errorf("postings for %q out of range: %w", entry.Term, apperrors.ErrCorruptSegment)
	}
	postingsBytes := make([]byte, entry.PostLen)
	if _, err := r.file.ReadAt(postingsBytes, r.header.PostOffset+entry.PostOffset); err != nil {
		return nil, fmt.Errorf("reading postings for %q: %w", entry.Term, err)
	}
	var postings index.PostingList
	if err := json.Unmarshal(postingsBytes, &postings); err != nil {
		return nil, fmt.Errorf("parsing postings for %q: %v: %w", entry.Term, err, apperrors.ErrCorruptSegment)
	}
	return postings, nil
}

// Load reads every posting, verifies the postings checksum and rebuilds a
// frozen index.
func (r *Reader) Load() (*index.InvertedIndex, error) {
	region := make([]byte, r.header.PostSize)
	if _, err := r.file.ReadAt(region, r.header.PostOffset); err != nil {
		return nil, fmt.Errorf("reading postings region: %v: %w", err, apperrors.ErrCorruptSegment)
	}
	if crc32.ChecksumIEEE(region) != r.postCRC {
		return nil, fmt.Errorf("postings checksum mismatch: %w", apperrors.ErrCorruptSegment)
	}
	entries := make([]index.TermEntry, 0, len(r.dict))
	for _, d := range r.dict {
		end := d.PostOffset + int64(d.PostLen)
		if d.PostOffset < 0 || d.PostLen < 0 || end > int64(len(region)) {
			return nil, fmt.Errorf("postings for %q out of range: %w", d.Term, apperrors.ErrCorruptSegment)
		}
		var postings index.PostingList
		if err := json.Unmarshal(region[d.PostOffset:end], &postings); err != nil {
			return nil, fmt.Errorf("parsing postings for %q: %v: %w", d.Term, err, apperrors.ErrCorruptSegment)
		}
		entries = append(entries, index.TermEntry{Term: d.Term, Postings: postings})
	}
	ix, err := index.Restore(entries)
	if err != nil {
		return nil, fmt.Errorf("restoring %s: %w", r.filePath, err)
	}
	return ix, nil
}

func (r *Reader) Terms() int {
	return len(r.dict)
}

func (r *Reader) PageCount() uint32 {
	return r.header.PageCount
}

func (r *Reader) CreatedAt() time.Time {
	return time.Unix(r.header.CreatedAt, 0)
}

func (r *Reader) Close() error {
	return r.file.Close()
}

// LoadFile opens the segment at path, loads it into a frozen index and
// closes the file.
func LoadFile(path string) (*index.InvertedIndex, error) {
	r, err := OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.Load()
}
