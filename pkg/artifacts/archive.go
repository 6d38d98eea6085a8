package artifacts

import (
	"archive/tar"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// ArchiveContentType is the media type of archives produced by Archive
const ArchiveContentType = "application/gzip"

// Archive packs files into a tar.gz and returns it with the hex sha256 of
// the compressed bytes and the total uncompressed size
func Archive(files []File) ([]byte, string, int64, error) {
	var buf bytes.Buffer
	hasher := sha256.New()

	gzWriter := gzip.NewWriter(io.MultiWriter(&buf, hasher))
	tarWriter := tar.NewWriter(gzWriter)

	var totalSize int64
	for _, file := range files {
		mode := int64(file.Mode.Perm())
		if mode == 0 {
			mode = 0644
		}
		header := &tar.Header{
			Name: file.Path,
			Mode: mode,
			Size: int64(len(file.Content)),
		}
		if err := tarWriter.WriteHeader(header); err != nil {
			return nil, "", 0, err
		}
		if _, err := tarWriter.Write(file.Content); err != nil {
			return nil, "", 0, err
		}
		totalSize += int64(len(file.Content))
	}

	if err := tarWriter.Close(); err != nil {
		return nil, "", 0, err
	}
	if err := gzWriter.Close(); err != nil {
		return nil, "", 0, err
	}

	return buf.Bytes(), hex.EncodeToString(hasher.Sum(nil)), totalSize, nil
}

// Extract unpacks an archive produced by Archive and returns its files and hash
func Extract(data []byte) ([]File, string, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	gzReader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)
	var files []File
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
		}
		content, err := io.ReadAll(tarReader)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
		}
		files = append(files, File{
			Path:    header.Name,
			Content: content,
			Mode:    header.FileInfo().Mode().Perm(),
		})
	}
	return files, hash, nil
}
