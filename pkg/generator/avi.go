// avi.go - Pure Go AVI writer using the Motion JPEG (MJPEG) video codec.
// Every frame repeats the same JPEG, so the file holds a still image for
// the requested duration. Playable without external codecs on most systems.
package generator

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

const (
	aviFPS = 15

	aviFlagHasIndex = 0x10
	aviFlagKeyframe = 0x10
)

// stickyWriter remembers the first write error and drops later writes.
type stickyWriter struct {
	w   io.Writer
	err error
}

func (s *stickyWriter) Write(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	n, err := s.w.Write(p)
	s.err = err
	return n, err
}

func (s *stickyWriter) fourCC(cc string) {
	io.WriteString(s, cc)
}

func (s *stickyWriter) uint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	s.Write(b[:])
}

func (s *stickyWriter) uint16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	s.Write(b[:])
}

// writeAVI writes img as an MJPEG AVI lasting durationSec seconds.
func writeAVI(out io.Writer, img image.Image, durationSec int) error {
	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return fmt.Errorf("failed to encode JPEG: %w", err)
	}
	jpegData := buf.Bytes()
	jpegSize := uint32(len(jpegData))

	// Chunks are padded to an even size.
	paddedJPEGSize := jpegSize + jpegSize%2

	width := uint32(img.Bounds().Dx())
	height := uint32(img.Bounds().Dy())
	microSecPerFrame := uint32(1000000 / aviFPS)
	totalFrames := uint32(max(durationSec, 1)) * aviFPS

	frameChunkSize := 8 + paddedJPEGSize // "00dc" + size + data
	moviSize := 4 + totalFrames*frameChunkSize
	idx1Size := 8 + totalFrames*16
	hdrlSize := uint32(4 + 64 + 124) // "hdrl" + avih + strl
	fileSize := 4 + (8 + hdrlSize) + (8 + moviSize) + idx1Size

	w := &stickyWriter{w: out}

	w.fourCC("RIFF")
	w.uint32(fileSize)
	w.fourCC("AVI ")

	w.fourCC("LIST")
	w.uint32(hdrlSize)
	w.fourCC("hdrl")

	// avih: main header
	w.fourCC("avih")
	w.uint32(56)
	w.uint32(microSecPerFrame)
	w.uint32(jpegSize * aviFPS) // max bytes per sec
	w.uint32(0)                 // padding granularity
	w.uint32(aviFlagHasIndex)
	w.uint32(totalFrames)
	w.uint32(0) // initial frames
	w.uint32(1) // streams
	w.uint32(jpegSize)
	w.uint32(width)
	w.uint32(height)
	for range 4 {
		w.uint32(0) // reserved
	}

	w.fourCC("LIST")
	w.uint32(116) // "strl" + strh(64) + strf(48)
	w.fourCC("strl")

	// strh: stream header
	w.fourCC("strh")
	w.uint32(56)
	w.fourCC("vids")
	w.fourCC("MJPG")
	w.uint32(0) // flags
	w.uint16(0) // priority
	w.uint16(0) // language
	w.uint32(0) // initial frames
	w.uint32(1) // scale
	w.uint32(aviFPS)
	w.uint32(0) // start
	w.uint32(totalFrames)
	w.uint32(jpegSize)
	w.uint32(0) // quality
	w.uint32(0) // sample size
	w.uint16(0) // left
	w.uint16(0) // top
	w.uint16(uint16(width))
	w.uint16(uint16(height))

	// strf: BITMAPINFOHEADER
	w.fourCC("strf")
	w.uint32(40)
	w.uint32(40)
	w.uint32(width)
	w.uint32(height)
	w.uint16(1)  // planes
	w.uint16(24) // bit count
	w.fourCC("MJPG")
	w.uint32(width * height * 3)
	for range 4 {
		w.uint32(0) // resolution and palette
	}

	w.fourCC("LIST")
	w.uint32(moviSize)
	w.fourCC("movi")

	for range totalFrames {
		w.fourCC("00dc")
		w.uint32(jpegSize)
		w.Write(jpegData)
		if jpegSize%2 != 0 {
			w.Write([]byte{0})
		}
	}

	w.fourCC("idx1")
	w.uint32(totalFrames * 16)

	offset := uint32(4) // relative to "movi"
	for range totalFrames {
		w.fourCC("00dc")
		w.uint32(aviFlagKeyframe)
		w.uint32(offset)
		w.uint32(jpegSize)
		offset += frameChunkSize
	}

	if w.err != nil {
		return fmt.Errorf("failed to write AVI: %w", w.err)
	}
	return nil
}
