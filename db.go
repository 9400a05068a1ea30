package bitvid

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Asset is one encoded container known to the catalog.
type Asset struct {
	Path   string
	CRC    string
	Width  int
	Height int
	Depth  int
	Frames int
	Size   int64
}

// AssetDB is a catalog of encoded containers, used when assembling flash
// images so that firmware build scripts can locate assets by checksum.
type AssetDB struct {
	db *sql.DB
}

// OpenAssetDB opens, creating if necessary, the catalog at file.
func OpenAssetDB(file string) (*AssetDB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS asset (id INTEGER PRIMARY KEY NOT NULL, path TEXT NOT NULL UNIQUE, crc TEXT NOT NULL, width INTEGER NOT NULL, height INTEGER NOT NULL, depth INTEGER NOT NULL, frames INTEGER NOT NULL, size INTEGER NOT NULL)"); err != nil {
		return nil, err
	}

	return &AssetDB{
		db: db,
	}, nil
}

func (db *AssetDB) Close() error {
	return db.db.Close()
}

// Record inserts the asset, replacing any previous entry for the same
// path; re-encoding a video updates its catalog row.
func (db *AssetDB) Record(a Asset) error {
	var id int64
	switch err := db.db.QueryRow("SELECT id FROM asset WHERE path = ?", a.Path).Scan(&id); err {
	case sql.ErrNoRows:
		_, err := db.db.Exec("INSERT INTO asset (path, crc, width, height, depth, frames, size) VALUES (?, ?, ?, ?, ?, ?, ?)",
			a.Path, a.CRC, a.Width, a.Height, a.Depth, a.Frames, a.Size)
		return err
	case nil:
		_, err := db.db.Exec("UPDATE asset SET crc = ?, width = ?, height = ?, depth = ?, frames = ?, size = ? WHERE id = ?",
			a.CRC, a.Width, a.Height, a.Depth, a.Frames, a.Size, id)
		return err
	default:
		return err
	}
}

// FindByCRC returns the asset with the given container checksum, or nil
// if none is known.
func (db *AssetDB) FindByCRC(crc string) (*Asset, error) {
	var a Asset
	switch err := db.db.QueryRow("SELECT path, crc, width, height, depth, frames, size FROM asset WHERE crc = ?", crc).Scan(&a.Path, &a.CRC, &a.Width, &a.Height, &a.Depth, &a.Frames, &a.Size); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		return &a, nil
	default:
		return nil, err
	}
}

// List returns every cataloged asset ordered by path.
func (db *AssetDB) List() ([]Asset, error) {
	rows, err := db.db.Query("SELECT path, crc, width, height, depth, frames, size FROM asset ORDER BY path")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.Path, &a.CRC, &a.Width, &a.Height, &a.Depth, &a.Frames, &a.Size); err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}

	return assets, rows.Err()
}
