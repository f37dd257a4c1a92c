// Command skillswarrior compares a CV with a job description from the terminal.
package main

import "github.com/fairyhunter13/skills-warrior/internal/cli"

func main() {
	cli.Execute()
}
