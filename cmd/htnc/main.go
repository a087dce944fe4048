// Command htnc compiles HTN planning domains and problems into Go code
// and plans problems in-process.
package main

func main() {
	Execute()
}
