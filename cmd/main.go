// cmd/main.go
package main

import (
	"go-ledger-engine/app"
)

func main() {
	app.Run()
}
