package client

// Named GraphQL documents issued by Client. Field selections are part of the
// contract with the server schema.
const (
	GetTodosQuery = `query GetTodos {
  getTodos {
    id
    title
    completed
    user {
      id
      name
    }
  }
}`

	GetTodoQuery = `query GetTodo($id: Int!) {
  getTodo(id: $id) {
    id
    title
    completed
    user {
      id
      name
      email
    }
  }
}`

	CreateTodoMutation = `mutation CreateTodo($title: String!, $userId: Int!) {
  createTodo(title: $title, userId: $userId) {
    id
    title
    completed
  }
}`

	UpdateTodoMutation = `mutation UpdateTodo($id: Int!, $title: String, $completed: Boolean) {
  updateTodo(id: $id, title: $title, completed: $completed) {
    id
    title
    completed
  }
}`

	DeleteTodoMutation = `mutation DeleteTodo($id: Int!) {
  deleteTodo(id: $id)
}`
)
