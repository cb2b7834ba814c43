// Command server runs the NestStay booking API and its maintenance tasks.
package main

func main() {
	Execute()
}
