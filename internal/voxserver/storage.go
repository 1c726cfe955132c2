package voxserver

import "os"

func openForRead(path string) (*os.File, error) {
	return os.Open(path)
}

func createForWrite(path string) (*os.File, error) {
	return os.Create(path)
}
