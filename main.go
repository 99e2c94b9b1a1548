package main

import (
	"log"

	"github.com/joho/godotenv"

	"tyreworks/internal/app"
)

func main() {
	// Local development keeps SMTP/DB secrets in .env; production sets real env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment")
	}

	app.Run()
}
