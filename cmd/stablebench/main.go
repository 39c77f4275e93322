// Copyright © 2018 One Concern

package main

import (
	"github.com/oneconcern/stablebench/cmd/stablebench/cmd"
)

func main() {
	cmd.Execute()
}
