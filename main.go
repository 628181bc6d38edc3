package main

import "github.com/woodsj1206/github-repo-stats/cmd"

func main() {
	cmd.Execute()
}
