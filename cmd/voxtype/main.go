package main

import "github.com/voxtype/voxtype/internal/bootstrap"

func main() {
	bootstrap.Run()
}
