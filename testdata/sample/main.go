package main

import "fmt"

// Walks one index past the end of the slice and panics.
func main() {
	fmt.Println("Starting sample program...")

	numbers := []int{1, 2, 3, 4, 5}
	for i := 0; i <= len(numbers); i++ {
		fmt.Printf("Number at position %d is: %d\n", i, numbers[i])
	}

	fmt.Println("Program completed successfully")
}
