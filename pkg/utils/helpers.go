package utils

import (
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"
)

//InSlice returns true if given string appears in given slice
func InSlice(lookingFor string, slice []string) bool {
	for _, s := range slice {
		if s == lookingFor {
			return true
		}
	}

	return false
}

//ListDir returns a list of files/ directories in given path
func ListDir(path string) ([]string, error) {
	names := make([]string, 0)
	if files, err := os.ReadDir(path); err != nil {
		return nil, fmt.Errorf("ListDir: Error, got '%v'", err)
	} else {
		for _, f := range files {
			names = append(names, f.Name())
		}
	}

	return names, nil
}

//EnsureDir creates given directory if it does not exist yet
func EnsureDir(path string) error {
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("EnsureDir: Error, got '%v'", err)
		}
		if err := os.MkdirAll(path, DirMode); err != nil {
			return fmt.Errorf("EnsureDir: Error creating '%s' directory, got '%v'", path, err)
		}
	}
	return nil
}

//ParseRegion builds a region from x, y, width and height strings (e.g. url parameters).
//Width and height must be positive.
func ParseRegion(x, y, width, height string) (image.Rectangle, error) {
	values := make([]int, 4)
	for i, s := range []string{x, y, width, height} {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("ParseRegion: Error, '%s' is not an integer", s)
		}
		values[i] = v
	}

	if values[2] <= 0 || values[3] <= 0 {
		return image.Rectangle{}, fmt.Errorf("ParseRegion: Error, width and height must be positive, got %dx%d", values[2], values[3])
	}

	return image.Rect(values[0], values[1], values[0]+values[2], values[1]+values[3]), nil
}

//VideoContentType returns the Content-Type for a video format
func VideoContentType(format string) string {
	if ct, ok := VideoContentTypes[strings.ToLower(format)]; ok {
		return ct
	}
	return DefaultVideoContentType
}
