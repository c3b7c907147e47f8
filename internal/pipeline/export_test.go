package pipeline

var WithDerive = withDerive
