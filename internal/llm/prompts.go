package llm

const questionBatchPrompt = `Analyze the following content and generate up to %d diagnostic questions.
For each question, identify the specific "concept" it assesses and assign it to a broader "group".
Group related concepts under meaningful umbrella terms. For example, group "delusion", "obsession", and "sleep disorders" under "Mental Health Concepts".
If a concept doesn't belong to any existing group, create a new, sensible group name based on the topic.
Ensure the "group" name is concise and suitable as a category title.
The specific "concept" field should name the granular topic the question is about, while the "group" field is the broader category.
For each question, assign a "difficulty" value between 0.1 (very easy) and 0.9 (very hard). Vary the difficulty levels across questions.

Respond ONLY with a JSON array of objects, no markdown, no explanation.
Each object must have the fields: "concept", "group", "question", "option_a", "option_b", "correct_answer" ("a" or "b"), "explanation", "difficulty".
Example item:
{"concept":"Obsession","group":"Mental Health Concepts","question":"Which of the following best describes an obsession?","option_a":"A recurring unwanted thought","option_b":"A positive goal you pursue regularly","correct_answer":"a","explanation":"An obsession is an intrusive thought that is hard to ignore.","difficulty":0.6}

Content:
---
%s
---`

const singleQuestionPrompt = `Write 1 multiple choice diagnostic question (2 options, a or b) to assess understanding of the concept "%s": %s.
Target a difficulty close to %.2f, where difficulty ranges from 0.1 (very easy) to 0.9 (very hard).
Respond ONLY with JSON, no markdown:
{"concept":"%s","question":"...","option_a":"...","option_b":"...","correct_answer":"a or b","explanation":"...","difficulty":number_between_0.1_and_0.9}`

const classroomTurnPrompt = `You are simulating a virtual classroom with a teacher and several students.

You must output ONE JSON object exactly like this:
{"teacher":"...","students":[{"name":"Aurora","text":"..."},{"name":"Ryota","text":"..."},{"name":"James","text":"..."}]}

### Instructions

* The teacher (Jiaran) gives clear, structured, and educational answers.
* Her responses should:
  - Start with a hook or preview ("Let's break this down...")
  - Use scaffolding techniques (e.g., 1-2-3 steps, analogies, bullet points)
  - Emphasize **why it matters** (real-world relevance)
  - Use light Markdown-style formatting, stay friendly and natural
  - ALWAYS complete thoughts and explanations, never end with a dangling colon
* The students respond only to what Jiaran says, stay in-character and distinct in tone, and each turn includes 3 students.
* The Horse only says 'neigh' or the horse emoji.

Roster:
%s

Context so far:
%s

Recent student comments:
%s

New user question:
%s

Output must be valid JSON, no markdown fences.`

const lecturePrompt = `%s%s

Return one JSON object shaped like:
{"turns":[{"teacher":"...","students":[{"name":"Aurora","text":"..."},{"name":"Ryota","text":"..."},{"name":"James","text":"..."}]}]}

Persona rules:
* Jiaran (teacher) is passionate, kind, Socratic, and varies her hooks ("Picture this...", "Let's break this down...", "Excellent question!").
* She teaches in steps, uses Markdown (**bold**, *italic*, lists) and always explains why it matters.
* Students reply only to Jiaran. Aurora is formal, Ryota upbeat, James deeply curious.
* Students ask follow-up questions, make connections to earlier topics, and show engagement.
* Produce 3-5 turns, each adding NEW information that builds on the conversation context.
* Horse may appear only as the horse emoji or "neigh".
* Output must be valid JSON, no markdown fences.`

const summaryPrompt = `Previously:
%s

New classroom dialogue:
%s

Update the summary to include both teacher explanations AND important student comments. Respond with ONLY the summary text, no explanation, no formatting.`

const scenePrompt = `You are a Python animation assistant that specializes in Manim, the mathematical animation library used by 3Blue1Brown.

You are given short animation goals or descriptions (e.g. "Animate a triangle with labels A, B, C"). Your job is to generate valid Python code using the Manim Community Library.

Rules:
- Always define a class that inherits from Scene or MovingCameraScene.
- The class name must be PascalCase (e.g. DrawTriangle).
- Always import from manim at the top.
- Include construct(self) and use .play(), .add(), .wait() to animate.
- Use the current Manim API: Create() instead of the deprecated ShowCreation().
- Use MathTex() for mathematical expressions, not just Tex().
- Do NOT include explanations or markdown, only return the raw Python code.

Animation request:
%s`
