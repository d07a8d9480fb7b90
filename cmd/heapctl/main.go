// Command heapctl boots the kernel heap in-process and runs, inspects and maps
// it.
package main

func main() {
	execute()
}
