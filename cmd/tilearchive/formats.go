package main

import "strings"

func deduceFormat(format, filePath string) string {
	if format == "" && strings.HasSuffix(filePath, ".mbtiles") {
		return "mbtiles"
	}
	if format == "" && strings.HasSuffix(filePath, ".pmtiles") {
		return "quadtiles"
	}
	if format == "" && strings.HasSuffix(filePath, ".s2tiles") {
		return "cubic"
	}
	return format
}
