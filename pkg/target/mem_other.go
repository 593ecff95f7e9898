//go:build !unix

package target

func openMemFile(path string) (memFile, error) {
	return nil, ErrUnsupported
}
