package main

import "fmt"

func main() {
	fmt.Println("Hello from Go!")
	fmt.Println("Testing Go execution.")

	a, b := 5, 3
	fmt.Printf("%d + %d = %d\n", a, b, a+b)
	fmt.Printf("%d * %d = %d\n", a, b, a*b)
}
