package main

import "github.com/redboxergaming-hash/trackerv8/cmd/tracker"

func main() {
	tracker.Execute()
}
