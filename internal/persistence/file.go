// Package persistence writes archival records to disk as gzipped JSON files
// organized by datatype and date.
package persistence

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path"
	"time"
)

// DataFile is a file where archival records are saved.
type DataFile struct {
	// Prefix is the directory the datatype subdirectory lives in.
	Prefix string
	// Datatype is the kind of record stored in this file.
	Datatype string
	// Subtype further qualifies the record kind; it may be empty.
	Subtype string
	// UUID is the unique identifier of the record.
	UUID string
	// Path is the full path of the written file.
	Path string
}

// WriteDataFile atomically creates a gzipped JSON file containing result and
// returns the corresponding DataFile. The file path embeds the datatype, the
// current date and the record UUID so that concurrent writers never collide.
func WriteDataFile(prefix, datatype, subtype, uuid string, result any) (*DataFile, error) {
	timestamp := time.Now()
	dir := path.Join(prefix, datatype, timestamp.Format("2006/01/02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	name := datatype
	if subtype != "" {
		name += "-" + subtype
	}
	filepath := path.Join(dir, name+"-"+
		timestamp.Format("20060102T150405.000000000Z")+"."+uuid+".json.gz")
	fp, err := os.OpenFile(filepath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}
	writer, err := gzip.NewWriterLevel(fp, gzip.BestSpeed)
	if err != nil {
		fp.Close()
		return nil, err
	}
	data, err := json.Marshal(result)
	if err != nil {
		writer.Close()
		fp.Close()
		return nil, err
	}
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		fp.Close()
		return nil, err
	}
	if err := writer.Close(); err != nil {
		fp.Close()
		return nil, err
	}
	if err := fp.Close(); err != nil {
		return nil, err
	}
	return &DataFile{
		Prefix:   prefix,
		Datatype: datatype,
		Subtype:  subtype,
		UUID:     uuid,
		Path:     filepath,
	}, nil
}
