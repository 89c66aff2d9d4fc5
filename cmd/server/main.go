package main

import "appraise/internal/app/server"

func main() {
	server.Run()
}
