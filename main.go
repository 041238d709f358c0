package main

import "github.com/EO-DataHub/eodhp-groupmatrix/cmd"

func main() {
	cmd.Execute()
}
