package schedule

const sampleJSON = `{
  "title": "CS Courses for 2024-2025",
  "courses": [
    {"id": "F101", "title": "Computer Science: Concepts, Philosophy, and Connections", "meets": "MWF 11:00-11:50"},
    {"id": "F110", "title": "Intro Programming for non-majors", "meets": "MWF 10:00-10:50"},
    {"id": "F111", "title": "Fundamentals of Computer Programming I", "meets": "MWF 13:00-13:50"},
    {"id": "W211", "title": "Fundamentals of Computer Programming II", "meets": "MWF 11:00-11:50"},
    {"id": "S394", "title": "Agile Software Development", "meets": "TuTh 14:00-15:20"},
    {"id": "F399", "title": "Special Topics", "meets": "TBA"},
    {"id": "", "title": "Placeholder", "meets": "M 9:00-9:50"}
  ]
}`
