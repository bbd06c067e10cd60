// Package prompt builds the fixed estimation prompt sent to the model.
package prompt

const header = `You are simulating a junior developer who has:
- **Basic knowledge of Java (syntax, classes, functions, control structures, basic OOP)**
- **No prior knowledge of Apache Hive or its libraries**

I will give you a piece of Java code that uses Apache Hive.
Estimate, as precisely as possible, how many **seconds** this junior developer would need to fully understand the code.
"Understanding" means:
- They can explain what the code does overall
- They can follow what each class/method does

Here is the code:
`

const footer = `

DO NOT GREET, THINK, OR REASON. NO OTHER TEXT.
Return **only** a json object. Do not output anything else.`

// Build embeds the source code into the estimation template. Pure and
// deterministic: all repeat attempts for a row send the same prompt.
func Build(code string) string {
	return header + "```java\n" + code + "\n```" + footer
}
