// Command focusbooster runs the Pomodoro focus service.
package main

import "github.com/ashureev/focusbooster/internal/cli"

func main() {
	cli.Execute()
}
