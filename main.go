package main

import "github.com/ecology747-sudo/gluvib/cmd/gluvib"

func main() {
	gluvib.Execute()
}
