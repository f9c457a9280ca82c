package streaming

import (
	"errors"
	"strconv"
	"strings"
)

// ErrUnsatisfiableRange reports a Range header none of whose ranges overlap
// the file. Answered with 416.
var ErrUnsatisfiableRange = errors.New("unsatisfiable range")

// ByteRange is a half-open byte interval [Start, End) within a file.
type ByteRange struct {
	Start int64
	End   int64
}

// Length returns the number of bytes the range covers.
func (r ByteRange) Length() int64 { return r.End - r.Start }

// ParseRange interprets a Range header against a file of the given size.
// It returns nil with no error for an absent or malformed header, which
// callers answer with a full 200 response. Ranges extending past the end
// are clamped; if every range misses the file entirely the result is
// ErrUnsatisfiableRange.
func ParseRange(header string, size int64) ([]ByteRange, error) {
	if header == "" {
		return nil, nil
	}
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil, nil
	}

	var out []ByteRange
	sawSpec := false
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		startStr, endStr, ok := strings.Cut(part, "-")
		if !ok {
			return nil, nil
		}
		sawSpec = true

		if startStr == "" {
			// Suffix range: the last N bytes.
			n, err := strconv.ParseInt(endStr, 10, 64)
			if err != nil || n <= 0 {
				if err != nil {
					return nil, nil
				}
				continue
			}
			if n > size {
				n = size
			}
			if n > 0 {
				out = append(out, ByteRange{Start: size - n, End: size})
			}
			continue
		}

		start, err := strconv.ParseInt(startStr, 10, 64)
		if err != nil || start < 0 {
			return nil, nil
		}
		if start >= size {
			continue
		}

		end := size
		if endStr != "" {
			// The header's end is inclusive.
			last, err := strconv.ParseInt(endStr, 10, 64)
			if err != nil || last < start {
				return nil, nil
			}
			if last+1 < end {
				end = last + 1
			}
		}
		out = append(out, ByteRange{Start: start, End: end})
	}

	if sawSpec && len(out) == 0 {
		return nil, ErrUnsatisfiableRange
	}
	return out, nil
}
