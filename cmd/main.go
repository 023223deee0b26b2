package main

import (
	"os"

	"github.com/royamoon/FoodLens/config"
	"github.com/royamoon/FoodLens/routes"
	"github.com/royamoon/FoodLens/utils"
)

func main() {
	config.InitDB()
	utils.InitS3()
	utils.InitMailer()

	r := routes.SetupRouter()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}
