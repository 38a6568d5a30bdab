package observe

import (
	"fmt"
)

func ExampleRef() {
	count := NewRef(0)
	fmt.Println(count.Get())

	count.Set(10)
	fmt.Println(count.Get())

	// Output:
	// 0
	// 10
}

func ExampleComputed() {
	count := NewRef(1)
	double := NewComputed(func() int {
		fmt.Println("doubling")
		return count.Get() * 2
	})
	plustwo := NewComputed(func() int {
		fmt.Println("adding")
		return double.Get() + 2
	})
	fmt.Println(count.Get())
	fmt.Println(double.Get())
	fmt.Println(plustwo.Get())

	count.Set(10)
	fmt.Println(count.Get())
	fmt.Println(plustwo.Get())
	fmt.Println(double.Get())

	// Output:
	// 1
	// doubling
	// 2
	// adding
	// 4
	// 10
	// adding
	// doubling
	// 22
	// 20
}

func ExampleWatch() {
	count := NewRef(1)

	w := Watch(count.Get, func(value, old int) {
		fmt.Printf("%d -> %d\n", old, value)
	})

	count.Set(2)
	count.Set(2)
	count.Set(3)

	w.Stop()
	count.Set(4)

	// Output:
	// 1 -> 2
	// 2 -> 3
}

func ExampleBatch() {
	first := NewRef("ada")
	last := NewRef("lovelace")

	Effect(func() {
		fmt.Println(first.Get(), last.Get())
	})

	Batch(func() {
		first.Set("grace")
		last.Set("hopper")
	})

	// Output:
	// ada lovelace
	// grace hopper
}

func ExampleNextTick() {
	count := NewRef(0)

	Mount(func() string {
		return fmt.Sprintf("<p>%d</p>", count.Get())
	}, func(prev, next string) {
		fmt.Println("patch", next)
	})

	Batch(func() {
		count.Set(1)
		NextTick(func() { fmt.Println("after the flush") })
		count.Set(2)
	})

	// Output:
	// patch <p>0</p>
	// patch <p>2</p>
	// after the flush
}
