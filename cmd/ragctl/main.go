package main

import "github.com/kirillkom/mcq-rag-assistant/internal/cli"

func main() {
	cli.Execute()
}
