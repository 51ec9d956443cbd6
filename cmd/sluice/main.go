package main

import (
	"context"

	"github.com/sluicedata/sluice/cmd"
)

func main() {
	cmd.Execute(context.Background())
}
