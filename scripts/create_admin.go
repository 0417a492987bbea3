// scripts/create_admin.go
package main

import (
	"fmt"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/saulfer1109/sistema-PDS2-sub000/config"
	"github.com/saulfer1109/sistema-PDS2-sub000/database"
	"github.com/saulfer1109/sistema-PDS2-sub000/models"
)

func main() {
	cfg := config.Load()
	database.Connect(cfg)

	username := os.Getenv("ADMIN_USER")
	if username == "" {
		username = "admin"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "cambiar123"
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	var existing models.Usuario
	if err := database.DB.Where("username = ?", username).First(&existing).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			log.Fatalf("failed to query usuarios: %v", err)
		}
	} else {
		fmt.Println("el usuario admin ya existe:", username)
		os.Exit(0)
	}

	u := models.Usuario{
		Username: username,
		Password: string(hashed),
		Rol:      models.RolAdmin,
		Nombre:   "Administrador",
	}
	if err := database.DB.Create(&u).Error; err != nil {
		log.Fatalf("failed to insert admin: %v", err)
	}

	fmt.Println("usuario admin creado:", username)
}
