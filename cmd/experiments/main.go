package main

import "github.com/swali-ai/retrieval/internal/cli"

func main() {
	cli.Execute()
}
