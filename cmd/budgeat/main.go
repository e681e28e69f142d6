package main

import (
	"budgeat-backend/cmd/budgeat/commands"
)

func main() {
	commands.Execute()
}
