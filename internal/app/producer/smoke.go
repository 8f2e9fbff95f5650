package producer

import (
	"codejudge/internal/domain/execution"
)

const (
	smokeInput    = "2 3\n"
	smokeExpected = "5"
)

// smokeSources add two integers read from stdin, one program per language.
var smokeSources = map[execution.Language]string{
	execution.LanguagePython: "a, b = map(int, input().split())\nprint(a + b)\n",
	execution.LanguageJavaScript: `const [a, b] = require("fs").readFileSync(0, "utf8").trim().split(/\s+/).map(Number);
console.log(a + b);
`,
	execution.LanguageJava: `import java.util.Scanner;

public class Solution {
    public static void main(String[] args) {
        Scanner in = new Scanner(System.in);
        System.out.println(in.nextInt() + in.nextInt());
    }
}
`,
	execution.LanguageCPP: `#include <iostream>

int main() {
    long long a, b;
    std::cin >> a >> b;
    std::cout << a + b << std::endl;
}
`,
	execution.LanguageC: `#include <stdio.h>

int main(void) {
    long long a, b;
    if (scanf("%lld %lld", &a, &b) != 2) return 1;
    printf("%lld\n", a + b);
    return 0;
}
`,
	execution.LanguageGo: `package main

import "fmt"

func main() {
	var a, b int
	fmt.Scan(&a, &b)
	fmt.Println(a + b)
}
`,
	execution.LanguageRust: `use std::io::Read;

fn main() {
    let mut input = String::new();
    std::io::stdin().read_to_string(&mut input).unwrap();
    let sum: i64 = input.split_whitespace().map(|v| v.parse::<i64>().unwrap()).sum();
    println!("{}", sum);
}
`,
	execution.LanguagePHP: "<?php\nfscanf(STDIN, \"%d %d\", $a, $b);\necho $a + $b, PHP_EOL;\n",
	execution.LanguageRuby: "a, b = gets.split.map(&:to_i)\nputs a + b\n",
	execution.LanguageCSharp: `using System;

class Program {
    static void Main() {
        var parts = Console.ReadLine().Split(' ');
        Console.WriteLine(long.Parse(parts[0]) + long.Parse(parts[1]));
    }
}
`,
}

// SmokeJobs builds one known-good job for each of the given languages that has
// a built-in program. A healthy toolchain accepts every one of them.
func SmokeJobs(languages []execution.Language) []execution.JobRequest {
	requests := make([]execution.JobRequest, 0, len(languages))
	for _, lang := range languages {
		source, ok := smokeSources[lang]
		if !ok {
			continue
		}
		input, expected := smokeInput, smokeExpected
		requests = append(requests, execution.JobRequest{
			ID:       "smoke-" + string(lang),
			Language: lang,
			Source:   source,
			Tests: []execution.TestCaseSpec{
				{Input: &input, ExpectedOutput: &expected},
			},
		})
	}
	return requests
}
