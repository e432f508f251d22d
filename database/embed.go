package database

import (
	"embed"
	"io/fs"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Migrations, binary'ye gömülü migration dosyalarını kök dizin olarak döner.
func Migrations() fs.FS {
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		// "migrations" derleme zamanında sabit; buraya düşmek build hatasıdır.
		panic(err)
	}
	return sub
}
