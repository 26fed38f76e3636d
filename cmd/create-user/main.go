package main

import (
	"bufio"
	"cyber_case_app_go/config"
	"cyber_case_app_go/db"
	"cyber_case_app_go/models"
	"cyber_case_app_go/services"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := db.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(&models.User{}, &models.AuditLog{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	reader := bufio.NewReader(os.Stdin)
	prompt := func(label string) string {
		fmt.Print(label + ": ")
		value, _ := reader.ReadString('\n')
		return strings.TrimSpace(value)
	}

	fmt.Println("=== Create Officer Account ===")
	fmt.Println()

	input := services.RegisterInput{
		Username:    prompt("Username"),
		FullName:    prompt("Full name"),
		Role:        prompt("Role (constable, head_constable, si, sho, dy_sp, sp, dig, igp, dgp, admin)"),
		BadgeNumber: prompt("Badge number"),
	}
	if models.Role(input.Role).AtLeast(models.RoleConstable) && !models.Role(input.Role).AtLeast(models.RoleDGP) {
		input.StationName = prompt("Police station")
		input.SubDivision = prompt("Sub-division")
		input.DistrictName = prompt("District")
		input.RangeName = prompt("Range")
		input.ZoneName = prompt("Zone")
	}

	// Get password securely
	fmt.Print("Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		log.Fatalf("Failed to read password: %v", err)
	}
	fmt.Println() // New line after password input
	input.Password = string(passwordBytes)

	audit := services.AuditContext{UserName: "create-user", UserRole: "system", IPAddress: "localhost"}
	user, err := services.CreateUser(db.DB, audit, input)
	if err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	fmt.Println()
	fmt.Println("✓ User created successfully!")
	fmt.Printf("  ID: %s\n", user.ID)
	fmt.Printf("  Username: %s\n", user.Username)
	fmt.Printf("  Role: %s\n", user.Role)
	fmt.Println()
	fmt.Printf("The officer can now log in with POST http://%s:%s/api/auth/token\n", cfg.ServerHost, cfg.ServerPort)
}
